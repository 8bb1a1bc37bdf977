package model

//
// Network extensions
//

import (
	"context"
	"net"
)

// Dialer establishes network connections.
type Dialer interface {
	// DialContext behaves like net.Dialer.DialContext.
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DNSQuery is an encoded DNS query ready to be sent using a DNSTransport.
type DNSQuery interface {
	// Domain is the domain we're querying for.
	Domain() string

	// Type is the query type.
	Type() uint16

	// Bytes serializes the query to bytes. This function may fail if we're not
	// able to correctly encode the domain into a query message.
	//
	// The value returned by this function WILL be memoized after the first call,
	// so you SHOULD create a new DNSQuery if you need to retry a query.
	Bytes() ([]byte, error)

	// ID returns the query ID.
	ID() uint16
}

// DNSEncoder encodes DNS queries to bytes
type DNSEncoder interface {
	// Encode transforms its arguments into a serialized DNS query.
	//
	// Every time you call Encode, you get a new DNSQuery value
	// using a query ID selected at random.
	//
	// Arguments:
	//
	// - domain is the domain for the query (e.g., x.org);
	//
	// - qtype is the query type (e.g., dns.TypeA);
	//
	// - padding is whether to add padding to the query.
	Encode(domain string, qtype uint16, padding bool) DNSQuery
}

// DNSDecoder decodes DNS replies.
type DNSDecoder interface {
	// DecodeLookupHost decodes a raw reply to the given query ID and
	// returns the addresses of the given qtype. On failure, the returned
	// error is one of the errors the netxlite package uses for DNS.
	DecodeLookupHost(qtype uint16, data []byte, queryID uint16) ([]string, error)
}

// DNSTransport represents an abstract DNS transport.
type DNSTransport interface {
	// RoundTrip sends a DNS query and receives the reply.
	RoundTrip(ctx context.Context, query DNSQuery) ([]byte, error)

	// Network is the network of the round tripper (e.g. "udp").
	Network() string

	// Address is the address of the round tripper (e.g. "1.1.1.1:53").
	Address() string
}
