package testingx

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
)

// DNSRoundTripper performs DNS round trips for the test listeners.
type DNSRoundTripper interface {
	// RoundTrip maps a raw query to a raw response. Returning an error
	// causes the listener not to reply to the query.
	RoundTrip(ctx context.Context, rawQuery []byte) ([]byte, error)
}

// DNSRoundTripperFunc is a function implementing [DNSRoundTripper].
type DNSRoundTripperFunc func(ctx context.Context, rawQuery []byte) ([]byte, error)

var _ DNSRoundTripper = DNSRoundTripperFunc(nil)

// RoundTrip implements [DNSRoundTripper].
func (fx DNSRoundTripperFunc) RoundTrip(ctx context.Context, rawQuery []byte) ([]byte, error) {
	return fx(ctx, rawQuery)
}

// ErrDNSDropped is returned by [DNSResponder] when it drops a query.
var ErrDNSDropped = errors.New("testingx: dropped DNS query")

// DNSResponder is a [DNSRoundTripper] answering A queries using miekg/dns. The
// zero value answers every query with NXDOMAIN.
type DNSResponder struct {
	// Records maps a domain (without the trailing dot) to its IPv4 addresses.
	Records map[string][]string

	// Rcode, when nonzero, is returned for every query instead of records.
	Rcode int

	// Delay is the OPTIONAL delay before replying.
	Delay time.Duration

	// Drop causes the responder never to reply.
	Drop bool

	// queries counts the queries we received.
	queries atomic.Int64
}

var _ DNSRoundTripper = &DNSResponder{}

// Queries returns the number of queries received so far.
func (dr *DNSResponder) Queries() int64 {
	return dr.queries.Load()
}

// RoundTrip implements [DNSRoundTripper].
func (dr *DNSResponder) RoundTrip(ctx context.Context, rawQuery []byte) ([]byte, error) {
	dr.queries.Add(1)
	query := new(dns.Msg)
	if err := query.Unpack(rawQuery); err != nil {
		return nil, err
	}
	if dr.Drop {
		<-ctx.Done()
		return nil, ErrDNSDropped
	}
	if dr.Delay > 0 {
		timer := time.NewTimer(dr.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return dr.reply(query).Pack()
}

// reply builds the reply to the given query.
func (dr *DNSResponder) reply(query *dns.Msg) *dns.Msg {
	reply := new(dns.Msg)
	reply.Compress = true
	reply.RecursionAvailable = true
	if dr.Rcode != 0 {
		return reply.SetRcode(query, dr.Rcode)
	}
	if len(query.Question) != 1 {
		return reply.SetRcode(query, dns.RcodeFormatError)
	}
	question := query.Question[0]
	addrs, found := dr.Records[dnsTrimDot(question.Name)]
	if !found {
		return reply.SetRcode(query, dns.RcodeNameError)
	}
	reply.SetReply(query)
	if question.Qtype != dns.TypeA {
		return reply
	}
	for _, addr := range addrs {
		reply.Answer = append(reply.Answer, &dns.A{
			Hdr: dns.RR_Header{
				Name:   question.Name,
				Rrtype: dns.TypeA,
				Class:  dns.ClassINET,
				Ttl:    60,
			},
			A: net.ParseIP(addr),
		})
	}
	return reply
}

// dnsTrimDot removes the final dot from a FQDN.
func dnsTrimDot(name string) string {
	if len(name) > 0 && name[len(name)-1] == '.' {
		return name[:len(name)-1]
	}
	return name
}
