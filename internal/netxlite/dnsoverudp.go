package netxlite

import (
	"context"
	"net"
	"time"

	"github.com/ooni/dnsbench/internal/model"
)

// dnsDefaultTimeout bounds a round trip when the context has no deadline. We
// use five seconds like Bionic does. See
// https://labs.ripe.net/Members/baptiste_jonglez_1/persistent-dns-connections-for-reliability-and-performance
const dnsDefaultTimeout = 5 * time.Second

// dnsMaxResponseSize is the size of the buffer for reading a UDP response.
const dnsMaxResponseSize = 1 << 17

// DNSOverUDPTransport is a DNS-over-UDP DNSTransport.
type DNSOverUDPTransport struct {
	dialer  model.Dialer
	address string
}

// NewDNSOverUDPTransport creates a DNSOverUDPTransport instance.
//
// Arguments:
//
// - dialer is any type that implements the Dialer interface;
//
// - address is the endpoint address (e.g., 8.8.8.8:53).
func NewDNSOverUDPTransport(dialer model.Dialer, address string) *DNSOverUDPTransport {
	return &DNSOverUDPTransport{dialer: dialer, address: address}
}

// RoundTrip sends a query and receives a reply. The round trip is bounded by
// the context deadline (or by a default timeout) and closing the context
// interrupts any pending I/O.
func (t *DNSOverUDPTransport) RoundTrip(ctx context.Context, query model.DNSQuery) ([]byte, error) {
	rawQuery, err := query.Bytes()
	if err != nil {
		return nil, err
	}
	conn, err := t.dialer.DialContext(ctx, "udp", t.address)
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
	if _, err := conn.Write(rawQuery); err != nil {
		return nil, dnsMaybeContextError(ctx, err)
	}
	reply := make([]byte, dnsMaxResponseSize)
	count, err := conn.Read(reply)
	if err != nil {
		return nil, dnsMaybeContextError(ctx, err)
	}
	return reply[:count], nil
}

// Network returns the transport network, i.e., "udp".
func (t *DNSOverUDPTransport) Network() string {
	return "udp"
}

// Address returns the upstream server address.
func (t *DNSOverUDPTransport) Address() string {
	return t.address
}

// dnsDeadline returns the earliest between the context deadline
// and the default round trip timeout.
func dnsDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(dnsDefaultTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

// dnsMaybeContextError returns the context error when the context is done
// because, in such a case, err is a consequence of closing the conn.
func dnsMaybeContextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// NewDNSTransport creates a DNSTransport for network ("udp" or "tcp") and
// address. It returns nil for an unsupported network.
func NewDNSTransport(dialer model.Dialer, network, address string) model.DNSTransport {
	switch network {
	case "udp":
		return NewDNSOverUDPTransport(dialer, address)
	case "tcp":
		return NewDNSOverTCPTransport(dialer, address)
	default:
		return nil
	}
}

// DefaultDNSPort is the port we use when the caller does not specify one.
const DefaultDNSPort = "53"

// ResolverEndpoint returns the endpoint for contacting resolver on port, which
// defaults to DefaultDNSPort when empty.
func ResolverEndpoint(resolver, port string) string {
	if port == "" {
		port = DefaultDNSPort
	}
	return net.JoinHostPort(resolver, port)
}

var _ model.DNSTransport = &DNSOverUDPTransport{}
