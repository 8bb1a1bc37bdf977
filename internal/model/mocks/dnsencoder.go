package mocks

import "github.com/ooni/dnsbench/internal/model"

// DNSEncoder allows mocking model.DNSEncoder.
type DNSEncoder struct {
	MockEncode func(domain string, qtype uint16, padding bool) model.DNSQuery
}

var _ model.DNSEncoder = &DNSEncoder{}

// Encode calls MockEncode.
func (e *DNSEncoder) Encode(domain string, qtype uint16, padding bool) model.DNSQuery {
	return e.MockEncode(domain, qtype, padding)
}

// DNSQuery allows mocking model.DNSQuery.
type DNSQuery struct {
	MockDomain func() string
	MockType   func() uint16
	MockBytes  func() ([]byte, error)
	MockID     func() uint16
}

var _ model.DNSQuery = &DNSQuery{}

// Domain calls MockDomain.
func (q *DNSQuery) Domain() string {
	return q.MockDomain()
}

// Type calls MockType.
func (q *DNSQuery) Type() uint16 {
	return q.MockType()
}

// Bytes calls MockBytes.
func (q *DNSQuery) Bytes() ([]byte, error) {
	return q.MockBytes()
}

// ID calls MockID.
func (q *DNSQuery) ID() uint16 {
	return q.MockID()
}
