package netxlite

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"time"

	"github.com/ooni/dnsbench/internal/model"
)

// NewDialerWithoutResolver creates a dialer that uses the given
// logger and fails with ErrNoResolver when it is passed a domain name.
func NewDialerWithoutResolver(logger model.DebugLogger) model.Dialer {
	return &dialerLogger{
		Dialer: &dialerSystem{},
		Logger: logger,
	}
}

// underlyingDialer is the Dialer we use by default.
var underlyingDialer = &net.Dialer{
	Timeout: 15 * time.Second,
}

// ErrNoResolver is the error returned when trying to dial a domain name.
var ErrNoResolver = errors.New("no configured resolver")

// dialerSystem dials using Go stdlib.
type dialerSystem struct{}

// DialContext implements model.Dialer.DialContext.
func (d *dialerSystem) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if _, err := netip.ParseAddr(host); err != nil {
		return nil, ErrNoResolver
	}
	return underlyingDialer.DialContext(ctx, network, address)
}

// dialerLogger is a Dialer with logging.
type dialerLogger struct {
	// Dialer is the underlying dialer.
	Dialer model.Dialer

	// Logger is the underlying logger.
	Logger model.DebugLogger
}

// DialContext implements model.Dialer.DialContext.
func (d *dialerLogger) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.Logger.Debugf("dial %s/%s...", address, network)
	start := time.Now()
	conn, err := d.Dialer.DialContext(ctx, network, address)
	elapsed := time.Since(start)
	d.Logger.Debugf("dial %s/%s... %s in %s", address, network, model.ErrorToStringOrOK(err), elapsed)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var _ model.Dialer = &dialerSystem{}
var _ model.Dialer = &dialerLogger{}
