package netxlite

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/ooni/dnsbench/internal/model"
)

// DNSOverTCPTransport is a DNS-over-TCP DNSTransport. Each round trip uses
// a new connection.
type DNSOverTCPTransport struct {
	dialer  model.Dialer
	address string
}

// NewDNSOverTCPTransport creates a new DNSOverTCPTransport.
//
// Arguments:
//
// - dialer is any type that implements the Dialer interface;
//
// - address is the endpoint address (e.g., 8.8.8.8:53).
func NewDNSOverTCPTransport(dialer model.Dialer, address string) *DNSOverTCPTransport {
	return &DNSOverTCPTransport{dialer: dialer, address: address}
}

// errQueryTooLarge indicates the query is too large for the transport.
var errQueryTooLarge = errors.New("oodns: query too large for this transport")

// RoundTrip sends a query and receives a reply.
func (t *DNSOverTCPTransport) RoundTrip(ctx context.Context, query model.DNSQuery) ([]byte, error) {
	rawQuery, err := query.Bytes()
	if err != nil {
		return nil, err
	}
	if len(rawQuery) > math.MaxUint16 {
		return nil, errQueryTooLarge
	}
	conn, err := t.dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	if err := conn.SetDeadline(dnsDeadline(ctx)); err != nil {
		return nil, err
	}
	// Write request
	buf := []byte{byte(len(rawQuery) >> 8)}
	buf = append(buf, byte(len(rawQuery)))
	buf = append(buf, rawQuery...)
	if _, err = conn.Write(buf); err != nil {
		return nil, dnsMaybeContextError(ctx, err)
	}
	// Read response
	header := make([]byte, 2)
	if _, err = io.ReadFull(conn, header); err != nil {
		return nil, dnsMaybeContextError(ctx, err)
	}
	length := int(header[0])<<8 | int(header[1])
	reply := make([]byte, length)
	if _, err = io.ReadFull(conn, reply); err != nil {
		return nil, dnsMaybeContextError(ctx, err)
	}
	return reply, nil
}

// Network returns the transport network, i.e., "tcp".
func (t *DNSOverTCPTransport) Network() string {
	return "tcp"
}

// Address returns the upstream server address.
func (t *DNSOverTCPTransport) Address() string {
	return t.address
}

var _ model.DNSTransport = &DNSOverTCPTransport{}
