// Package optional contains a type modeling a value that may be absent.
package optional

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Value is an optional value. The zero value is an empty value.
type Value[Type any] struct {
	indirect *Type
}

// None constructs an empty value.
func None[Type any]() Value[Type] {
	return Value[Type]{}
}

// Some constructs a value containing v.
func Some[Type any](v Type) Value[Type] {
	return Value[Type]{indirect: &v}
}

// ErrIsNone is the panic value of Unwrap when the value is empty.
var ErrIsNone = errors.New("is none")

// IsNone returns whether the value is empty.
func (v Value[Type]) IsNone() bool {
	return v.indirect == nil
}

// Unwrap returns the underlying value or panics with [ErrIsNone].
func (v Value[Type]) Unwrap() Type {
	if v.indirect == nil {
		panic(ErrIsNone)
	}
	return *v.indirect
}

// UnwrapOr returns the underlying value or fallback if the value is empty.
func (v Value[Type]) UnwrapOr(fallback Type) Type {
	if v.indirect == nil {
		return fallback
	}
	return *v.indirect
}

// MarshalJSON implements json.Marshaler. An empty value becomes `null`.
func (v Value[Type]) MarshalJSON() ([]byte, error) {
	if v.indirect == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*v.indirect)
}

// UnmarshalJSON implements json.Unmarshaler. A `null` input becomes an empty value.
func (v *Value[Type]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.indirect = nil
		return nil
	}
	var value Type
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	v.indirect = &value
	return nil
}
