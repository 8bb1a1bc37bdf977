package mocks

import "github.com/ooni/dnsbench/internal/model"

// DNSDecoder allows mocking model.DNSDecoder.
type DNSDecoder struct {
	MockDecodeLookupHost func(qtype uint16, data []byte, queryID uint16) ([]string, error)
}

var _ model.DNSDecoder = &DNSDecoder{}

// DecodeLookupHost calls MockDecodeLookupHost.
func (d *DNSDecoder) DecodeLookupHost(qtype uint16, data []byte, queryID uint16) ([]string, error) {
	return d.MockDecodeLookupHost(qtype, data, queryID)
}
