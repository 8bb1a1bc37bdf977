// Package selection ranks resolvers by mean latency.
package selection

import (
	"net/netip"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/ooni/dnsbench/internal/model"
)

// Select returns the topK resolvers with the lowest mean latency. Resolvers
// without successful probes are ignored. Ties are broken using the resolver
// address, therefore the result only depends on the input. A topK lower
// than one is treated as one. When there are fewer than topK candidates,
// Select returns all of them. Select does not modify stats.
func Select(stats map[string]*model.ResolverStats, topK int) model.RankedSelection {
	topK = max(1, topK)
	out := model.RankedSelection{}
	for resolver, entry := range stats {
		if entry == nil {
			continue
		}
		mean, good := entry.MeanLatencyMs()
		if !good {
			continue
		}
		out = append(out, model.RankedResolver{
			Resolver:      resolver,
			MeanLatencyMs: mean,
			SuccessCount:  entry.SuccessCount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].MeanLatencyMs, out[j].MeanLatencyMs, out[i].Resolver, out[j].Resolver)
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// less orders by latency and then by resolver address.
func less(latencyLeft, latencyRight float64, left, right string) bool {
	if latencyLeft != latencyRight {
		return latencyLeft < latencyRight
	}
	return addressLess(left, right)
}

// addressLess compares addresses in netip.Addr order (IPv4 before IPv6).
// Addresses that do not parse sort after all the valid ones, in string order.
func addressLess(left, right string) bool {
	leftAddr, errLeft := netip.ParseAddr(left)
	rightAddr, errRight := netip.ParseAddr(right)
	switch {
	case errLeft == nil && errRight != nil:
		return true
	case errLeft != nil && errRight == nil:
		return false
	case errLeft != nil && errRight != nil:
		return left < right
	}
	if cmp := leftAddr.Compare(rightAddr); cmp != 0 {
		return cmp < 0
	}
	return left < right
}

// Summary contains reporting statistics for a resolver.
type Summary struct {
	// Resolver is the resolver IP address.
	Resolver string `json:"resolver"`

	// SuccessCount is the number of successful probes.
	SuccessCount int `json:"success_count"`

	// FailureCount is the number of failed probes.
	FailureCount int `json:"failure_count"`

	// MeanLatencyMs is the mean latency.
	MeanLatencyMs float64 `json:"mean_latency_ms"`

	// MedianLatencyMs is the median latency.
	MedianLatencyMs float64 `json:"median_latency_ms"`

	// StdDevLatencyMs is the population standard deviation of the latency.
	StdDevLatencyMs float64 `json:"stddev_latency_ms"`
}

// Summarize returns a Summary for each resolver with at least one successful
// probe, using the same ordering as Select and without truncating.
func Summarize(input map[string]*model.ResolverStats) []Summary {
	out := []Summary{}
	for resolver, entry := range input {
		if entry == nil {
			continue
		}
		mean, good := entry.MeanLatencyMs()
		if !good {
			continue
		}
		// both functions only fail with empty input
		median, _ := stats.Median(entry.SamplesMs)
		stddev, _ := stats.StandardDeviation(entry.SamplesMs)
		out = append(out, Summary{
			Resolver:        resolver,
			SuccessCount:    entry.SuccessCount,
			FailureCount:    entry.FailureCount,
			MeanLatencyMs:   mean,
			MedianLatencyMs: median,
			StdDevLatencyMs: stddev,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].MeanLatencyMs, out[j].MeanLatencyMs, out[i].Resolver, out[j].Resolver)
	})
	return out
}
