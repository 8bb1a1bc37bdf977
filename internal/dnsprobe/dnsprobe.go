// Package dnsprobe measures how long a resolver takes to answer
// a single A query for a domain.
package dnsprobe

import (
	"context"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"github.com/ooni/dnsbench/internal/model"
	"github.com/ooni/dnsbench/internal/netxlite"
)

// FailureInvalidResolverAddress indicates that the resolver is not an IP address.
const FailureInvalidResolverAddress = "invalid_resolver_address"

// FailureUnsupportedNetwork indicates that the prober has been configured
// to use a network that is neither "udp" nor "tcp".
const FailureUnsupportedNetwork = "unsupported_network"

// Prober implements model.Prober by sending a single DNS query to the
// resolver and waiting for the reply.
type Prober struct {
	// Decoder is the MANDATORY DNS decoder.
	Decoder model.DNSDecoder

	// Dialer is the MANDATORY dialer.
	Dialer model.Dialer

	// Encoder is the MANDATORY DNS encoder.
	Encoder model.DNSEncoder

	// Logger is the MANDATORY logger.
	Logger model.Logger

	// Network is the MANDATORY network to use ("udp" or "tcp").
	Network string

	// Port is the OPTIONAL port to use (default: 53).
	Port string
}

// NewProber creates a new Prober using the given logger and network.
func NewProber(logger model.Logger, network string) *Prober {
	logger = model.ValidLoggerOrDefault(logger)
	return &Prober{
		Decoder: &netxlite.DNSDecoderMiekg{},
		Dialer:  netxlite.NewDialerWithoutResolver(logger),
		Encoder: &netxlite.DNSEncoderMiekg{},
		Logger:  logger,
		Network: network,
	}
}

var _ model.Prober = &Prober{}

// Probe implements model.Prober. The latency is the time elapsed between
// dispatching the query and decoding a valid answer.
func (p *Prober) Probe(ctx context.Context, resolver, domain string, timeout time.Duration) model.ProbeResult {
	if _, err := netip.ParseAddr(resolver); err != nil {
		return model.NewProbeFailure(resolver, domain, FailureInvalidResolverAddress)
	}
	txp := netxlite.NewDNSTransport(p.Dialer, p.Network, netxlite.ResolverEndpoint(resolver, p.Port))
	if txp == nil {
		return model.NewProbeFailure(resolver, domain, FailureUnsupportedNetwork)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := p.Encoder.Encode(domain, dns.TypeA, false)
	p.Logger.Debugf("dnsprobe: %s %s/%s...", domain, txp.Address(), txp.Network())
	start := time.Now()
	addrs, err := p.roundTrip(ctx, txp, query)
	elapsed := time.Since(start)
	if err != nil {
		failure := netxlite.ClassifyResolverError(err)
		p.Logger.Debugf("dnsprobe: %s %s/%s... %s in %s", domain, txp.Address(), txp.Network(), failure, elapsed)
		return model.NewProbeFailure(resolver, domain, failure)
	}
	p.Logger.Debugf("dnsprobe: %s %s/%s... %v in %s", domain, txp.Address(), txp.Network(), addrs, elapsed)
	return model.NewProbeSuccess(resolver, domain, elapsed)
}

func (p *Prober) roundTrip(ctx context.Context, txp model.DNSTransport, query model.DNSQuery) ([]string, error) {
	data, err := txp.RoundTrip(ctx, query)
	if err != nil {
		return nil, err
	}
	return p.Decoder.DecodeLookupHost(query.Type(), data, query.ID())
}
