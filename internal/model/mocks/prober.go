package mocks

import (
	"context"
	"time"

	"github.com/ooni/dnsbench/internal/model"
)

// Prober allows mocking model.Prober.
type Prober struct {
	MockProbe func(ctx context.Context, resolver, domain string, timeout time.Duration) model.ProbeResult
}

var _ model.Prober = &Prober{}

// Probe calls MockProbe.
func (p *Prober) Probe(ctx context.Context, resolver, domain string, timeout time.Duration) model.ProbeResult {
	return p.MockProbe(ctx, resolver, domain, timeout)
}
