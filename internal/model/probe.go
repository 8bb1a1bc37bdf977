package model

//
// Probing resolvers
//

import (
	"context"
	"time"

	"github.com/ooni/dnsbench/internal/optional"
)

// ProbeResult is the outcome of resolving one domain using one resolver.
//
// LatencyMs is set if and only if Succeeded is true; Failure is set
// if and only if Succeeded is false.
type ProbeResult struct {
	// Resolver is the resolver IP address.
	Resolver string `json:"resolver"`

	// Domain is the domain we resolved.
	Domain string `json:"domain"`

	// Succeeded indicates whether we received at least one A record.
	Succeeded bool `json:"succeeded"`

	// LatencyMs is the elapsed time between dispatching the query and
	// decoding a valid answer, in milliseconds.
	LatencyMs optional.Value[float64] `json:"latency_ms"`

	// Failure is the failure string describing why the probe failed.
	Failure optional.Value[string] `json:"failure"`
}

// NewProbeSuccess creates a ProbeResult for a successful probe.
func NewProbeSuccess(resolver, domain string, elapsed time.Duration) ProbeResult {
	return ProbeResult{
		Resolver:  resolver,
		Domain:    domain,
		Succeeded: true,
		LatencyMs: optional.Some(float64(elapsed) / float64(time.Millisecond)),
		Failure:   optional.None[string](),
	}
}

// NewProbeFailure creates a ProbeResult for a failed probe.
func NewProbeFailure(resolver, domain, failure string) ProbeResult {
	return ProbeResult{
		Resolver:  resolver,
		Domain:    domain,
		Succeeded: false,
		LatencyMs: optional.None[float64](),
		Failure:   optional.Some(failure),
	}
}

// Prober performs a single bounded-time resolution attempt.
type Prober interface {
	// Probe resolves the A records of domain using resolver as the sole
	// authority. The attempt MUST be bounded by timeout and by ctx. A probe
	// never fails: failures are recorded inside the returned ProbeResult.
	Probe(ctx context.Context, resolver, domain string, timeout time.Duration) ProbeResult
}

// ResolverStats aggregates the probe results of a single resolver.
type ResolverStats struct {
	// Resolver is the resolver IP address.
	Resolver string `json:"resolver"`

	// SuccessCount is the number of successful probes.
	SuccessCount int `json:"success_count"`

	// FailureCount is the number of failed probes.
	FailureCount int `json:"failure_count"`

	// TotalLatencyMs is the sum of the latencies of successful probes.
	TotalLatencyMs float64 `json:"total_latency_ms"`

	// SamplesMs contains the latency of each successful probe.
	SamplesMs []float64 `json:"samples_ms"`
}

// NewResolverStats creates empty stats for the given resolver.
func NewResolverStats(resolver string) *ResolverStats {
	return &ResolverStats{
		Resolver:  resolver,
		SamplesMs: []float64{},
	}
}

// Update accounts for the given ProbeResult. The caller is responsible
// for serializing calls to Update for the same ResolverStats.
func (rs *ResolverStats) Update(pr ProbeResult) {
	if !pr.Succeeded || pr.LatencyMs.IsNone() {
		rs.FailureCount++
		return
	}
	latency := pr.LatencyMs.Unwrap()
	rs.SuccessCount++
	rs.TotalLatencyMs += latency
	rs.SamplesMs = append(rs.SamplesMs, latency)
}

// MeanLatencyMs returns the mean latency of successful probes. The
// boolean is false when there are no successful probes.
func (rs *ResolverStats) MeanLatencyMs() (float64, bool) {
	if rs.SuccessCount <= 0 {
		return 0, false
	}
	return rs.TotalLatencyMs / float64(rs.SuccessCount), true
}

// RankedResolver is an entry of a RankedSelection.
type RankedResolver struct {
	// Resolver is the resolver IP address.
	Resolver string `json:"resolver"`

	// MeanLatencyMs is the mean latency of successful probes.
	MeanLatencyMs float64 `json:"mean_latency_ms"`

	// SuccessCount is the number of successful probes.
	SuccessCount int `json:"success_count"`
}

// RankedSelection contains resolvers sorted from the fastest.
type RankedSelection []RankedResolver

// Addresses returns the resolver addresses in rank order.
func (rs RankedSelection) Addresses() []string {
	out := make([]string, 0, len(rs))
	for _, entry := range rs {
		out = append(out, entry.Resolver)
	}
	return out
}
