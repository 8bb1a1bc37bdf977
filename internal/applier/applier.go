// Package applier applies a resolver selection to a network interface
// and reverts interfaces to their automatic configuration.
package applier

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrConfiguration is the error wrapped by all the errors returned when
// we cannot apply or revert the configuration.
var ErrConfiguration = errors.New("applier: configuration failed")

// ErrUtilityMissing indicates that a required system utility is not installed.
var ErrUtilityMissing = fmt.Errorf("%w: required utility is missing", ErrConfiguration)

// ErrPermissionDenied indicates that we lack the privileges to change
// the system configuration.
var ErrPermissionDenied = fmt.Errorf("%w: permission denied", ErrConfiguration)

// ErrInvalidInterface indicates that the network interface does not exist.
var ErrInvalidInterface = fmt.Errorf("%w: invalid interface", ErrConfiguration)

// RevertError is the error returned when we cannot revert some interfaces.
type RevertError struct {
	// Failed maps each interface we could not revert to the error.
	Failed map[string]error
}

// Error implements error.
func (e *RevertError) Error() string {
	var entries []string
	for _, iface := range e.interfaces() {
		entries = append(entries, fmt.Sprintf("%s: %s", iface, e.Failed[iface].Error()))
	}
	return fmt.Sprintf("applier: cannot revert %d interface(s): %s", len(e.Failed), strings.Join(entries, "; "))
}

// Unwrap allows to use errors.Is and errors.As with the underlying errors.
func (e *RevertError) Unwrap() []error {
	var out []error
	for _, iface := range e.interfaces() {
		out = append(out, e.Failed[iface])
	}
	return out
}

// interfaces returns the failed interfaces in sorted order.
func (e *RevertError) interfaces() []string {
	var out []string
	for iface := range e.Failed {
		out = append(out, iface)
	}
	sort.Strings(out)
	return out
}
