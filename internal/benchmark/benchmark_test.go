package benchmark

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/dnsbench/internal/model"
	"github.com/ooni/dnsbench/internal/model/mocks"
	"github.com/ooni/dnsbench/internal/selection"
)

// scriptedProber returns a prober that succeeds with the given latency for
// the (resolver, domain) pairs in latencies and fails for the others. It
// counts the calls and tracks the maximum number of concurrent probes.
type scriptedProber struct {
	latencies map[string]time.Duration
	calls     atomic.Int64
	inflight  atomic.Int64
	maxflight atomic.Int64
	mu        sync.Mutex
	seen      map[string]int
}

func newScriptedProber(latencies map[string]time.Duration) *scriptedProber {
	return &scriptedProber{latencies: latencies, seen: map[string]int{}}
}

func (sp *scriptedProber) key(resolver, domain string) string {
	return resolver + "/" + domain
}

func (sp *scriptedProber) prober() *mocks.Prober {
	return &mocks.Prober{
		MockProbe: func(ctx context.Context, resolver, domain string, timeout time.Duration) model.ProbeResult {
			sp.calls.Add(1)
			current := sp.inflight.Add(1)
			defer sp.inflight.Add(-1)
			for {
				prev := sp.maxflight.Load()
				if current <= prev || sp.maxflight.CompareAndSwap(prev, current) {
					break
				}
			}
			sp.mu.Lock()
			sp.seen[sp.key(resolver, domain)]++
			sp.mu.Unlock()
			time.Sleep(time.Millisecond)
			latency, found := sp.latencies[sp.key(resolver, domain)]
			if !found {
				return model.NewProbeFailure(resolver, domain, "generic_timeout_error")
			}
			return model.NewProbeSuccess(resolver, domain, latency)
		},
	}
}

func TestDefaultConcurrency(t *testing.T) {
	cases := map[int]int{-1: 1, 0: 1, 1: 1, 10: 10, 37: 37, 38: 37, 1000: 37}
	for input, expect := range cases {
		if got := DefaultConcurrency(input); got != expect {
			t.Fatal("input", input, "expected", expect, "got", got)
		}
	}
}

func TestRunInvalidInput(t *testing.T) {
	prober := newScriptedProber(nil).prober()

	cases := []struct {
		name   string
		config *Config
	}{{
		name: "zero timeout",
		config: &Config{
			Resolvers:   []string{"1.1.1.1"},
			Domains:     []string{"example.com"},
			Concurrency: 1,
			Prober:      prober,
		},
	}, {
		name: "zero concurrency",
		config: &Config{
			Resolvers: []string{"1.1.1.1"},
			Domains:   []string{"example.com"},
			Timeout:   time.Second,
			Prober:    prober,
		},
	}, {
		name: "no domains",
		config: &Config{
			Resolvers:   []string{"1.1.1.1"},
			Concurrency: 1,
			Timeout:     time.Second,
			Prober:      prober,
		},
	}, {
		name: "invalid resolver",
		config: &Config{
			Resolvers:   []string{"1.1.1.1", "dns.google"},
			Domains:     []string{"example.com"},
			Concurrency: 1,
			Timeout:     time.Second,
			Prober:      prober,
		},
	}, {
		name: "no prober",
		config: &Config{
			Resolvers:   []string{"1.1.1.1"},
			Domains:     []string{"example.com"},
			Concurrency: 1,
			Timeout:     time.Second,
		},
	}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stats, err := Run(context.Background(), tc.config)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatal("unexpected error", err)
			}
			if stats != nil {
				t.Fatal("expected nil stats")
			}
		})
	}
}

func TestRunWithNoResolvers(t *testing.T) {
	sp := newScriptedProber(nil)
	stats, err := Run(context.Background(), &Config{
		Domains:     []string{"example.com"},
		Concurrency: 4,
		Timeout:     time.Second,
		Prober:      sp.prober(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats == nil || len(stats) != 0 {
		t.Fatal("expected an empty map", stats)
	}
	if sp.calls.Load() != 0 {
		t.Fatal("expected no probes")
	}
}

func TestRunCompleteness(t *testing.T) {
	var resolvers []string
	for idx := 1; idx <= 25; idx++ {
		resolvers = append(resolvers, fmt.Sprintf("10.0.0.%d", idx))
	}
	domains := []string{"a.example", "b.example", "c.example"}
	sp := newScriptedProber(nil)
	var progress []int
	_, err := Run(context.Background(), &Config{
		Resolvers:   resolvers,
		Domains:     domains,
		Concurrency: 7,
		Timeout:     time.Second,
		Prober:      sp.prober(),
		OnProgress: func(done, total int) {
			if total != 75 {
				t.Error("unexpected total", total)
			}
			progress = append(progress, done)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sp.calls.Load() != 75 {
		t.Fatal("unexpected number of probes", sp.calls.Load())
	}
	for _, resolver := range resolvers {
		for _, domain := range domains {
			if sp.seen[sp.key(resolver, domain)] != 1 {
				t.Fatal("pair not probed exactly once", resolver, domain)
			}
		}
	}
	if len(progress) != 75 || progress[74] != 75 {
		t.Fatal("unexpected progress", progress)
	}
	if sp.maxflight.Load() > 7 {
		t.Fatal("exceeded concurrency", sp.maxflight.Load())
	}
}

func TestRunScenario(t *testing.T) {
	// 1.1.1.1 answers both domains in 20ms and 30ms; 8.8.8.8 answers only
	// one domain in 10ms; 9.9.9.9 never answers.
	sp := newScriptedProber(map[string]time.Duration{
		"1.1.1.1/google.com": 20 * time.Millisecond,
		"1.1.1.1/soft98.ir":  30 * time.Millisecond,
		"8.8.8.8/google.com": 10 * time.Millisecond,
	})
	stats, err := Run(context.Background(), &Config{
		Resolvers:   []string{"1.1.1.1", "8.8.8.8", "9.9.9.9"},
		Domains:     []string{"google.com", "soft98.ir"},
		Concurrency: 3,
		Timeout:     time.Second,
		Prober:      sp.prober(),
	})
	if err != nil {
		t.Fatal(err)
	}
	expect := map[string]*model.ResolverStats{
		"1.1.1.1": {
			Resolver:       "1.1.1.1",
			SuccessCount:   2,
			FailureCount:   0,
			TotalLatencyMs: 50,
			SamplesMs:      []float64{20, 30},
		},
		"8.8.8.8": {
			Resolver:       "8.8.8.8",
			SuccessCount:   1,
			FailureCount:   1,
			TotalLatencyMs: 10,
			SamplesMs:      []float64{10},
		},
	}
	if diff := cmp.Diff(expect, stats); diff != "" {
		t.Fatal(diff)
	}
}

func TestRunThenSelect(t *testing.T) {
	// 9.9.9.9 answers the first domain more slowly than the second one,
	// so its samples do not arrive in order; 8.8.8.8 never answers.
	sp := newScriptedProber(map[string]time.Duration{
		"1.1.1.1/google.com": 10 * time.Millisecond,
		"1.1.1.1/soft98.ir":  12 * time.Millisecond,
		"9.9.9.9/google.com": 30 * time.Millisecond,
		"9.9.9.9/soft98.ir":  20 * time.Millisecond,
	})
	stats, err := Run(context.Background(), &Config{
		Resolvers:   []string{"1.1.1.1", "8.8.8.8", "9.9.9.9"},
		Domains:     []string{"google.com", "soft98.ir"},
		Concurrency: 37,
		Timeout:     time.Second,
		Prober:      sp.prober(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := sp.calls.Load(); got != 6 {
		t.Fatal("expected 6 probes, got", got)
	}
	if len(stats) != 2 {
		t.Fatal("expected two resolvers, got", len(stats))
	}
	if diff := cmp.Diff([]float64{20, 30}, stats["9.9.9.9"].SamplesMs); diff != "" {
		t.Fatal(diff)
	}
	got := selection.Select(stats, 2)
	expect := model.RankedSelection{{
		Resolver:      "1.1.1.1",
		MeanLatencyMs: 11,
		SuccessCount:  2,
	}, {
		Resolver:      "9.9.9.9",
		MeanLatencyMs: 25,
		SuccessCount:  2,
	}}
	if diff := cmp.Diff(expect, got); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"1.1.1.1", "9.9.9.9"}, got.Addresses()); diff != "" {
		t.Fatal(diff)
	}
}

func TestRunIsIndependentOfConcurrency(t *testing.T) {
	latencies := map[string]time.Duration{}
	var resolvers []string
	domains := []string{"a.example", "b.example", "c.example", "d.example"}
	for idx := 1; idx <= 30; idx++ {
		resolver := fmt.Sprintf("192.0.2.%d", idx)
		resolvers = append(resolvers, resolver)
		for didx, domain := range domains {
			if (idx+didx)%3 == 0 {
				continue
			}
			latencies[resolver+"/"+domain] = time.Duration(idx*10+didx) * time.Millisecond
		}
	}
	run := func(concurrency int) map[string]*model.ResolverStats {
		stats, err := Run(context.Background(), &Config{
			Resolvers:   resolvers,
			Domains:     domains,
			Concurrency: concurrency,
			Timeout:     time.Second,
			Prober:      newScriptedProber(latencies).prober(),
		})
		if err != nil {
			t.Fatal(err)
		}
		return stats
	}
	serial, parallel := run(1), run(20)
	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Fatal(diff)
	}
	if len(serial) != 30 {
		t.Fatal("unexpected number of resolvers", len(serial))
	}
}

func TestRunAllFail(t *testing.T) {
	stats, err := Run(context.Background(), &Config{
		Resolvers:   []string{"1.1.1.1", "8.8.8.8"},
		Domains:     []string{"example.com"},
		Concurrency: 2,
		Timeout:     time.Second,
		Prober:      newScriptedProber(nil).prober(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats == nil || len(stats) != 0 {
		t.Fatal("expected an empty map", stats)
	}
}

func TestRunDeduplicatesResolvers(t *testing.T) {
	sp := newScriptedProber(map[string]time.Duration{
		"1.1.1.1/example.com": 5 * time.Millisecond,
	})
	stats, err := Run(context.Background(), &Config{
		Resolvers:   []string{"1.1.1.1", "1.1.1.1"},
		Domains:     []string{"example.com"},
		Concurrency: 2,
		Timeout:     time.Second,
		Prober:      sp.prober(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if sp.calls.Load() != 1 {
		t.Fatal("expected a single probe", sp.calls.Load())
	}
	if stats["1.1.1.1"].SuccessCount != 1 {
		t.Fatal("unexpected stats", stats["1.1.1.1"])
	}
}

func TestRunCancellation(t *testing.T) {
	t.Run("already canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		stats, err := Run(ctx, &Config{
			Resolvers:   []string{"1.1.1.1", "8.8.8.8"},
			Domains:     []string{"example.com"},
			Concurrency: 2,
			Timeout:     time.Second,
			Prober:      newScriptedProber(nil).prober(),
		})
		if !errors.Is(err, ErrIncomplete) || !errors.Is(err, context.Canceled) {
			t.Fatal("unexpected error", err)
		}
		if stats != nil {
			t.Fatal("expected nil stats")
		}
	})

	t.Run("cancel while probes are blocked", func(t *testing.T) {
		var calls atomic.Int64
		prober := &mocks.Prober{
			MockProbe: func(ctx context.Context, resolver, domain string, timeout time.Duration) model.ProbeResult {
				calls.Add(1)
				select {
				case <-ctx.Done():
					return model.NewProbeFailure(resolver, domain, "interrupted")
				case <-time.After(timeout):
					return model.NewProbeFailure(resolver, domain, "generic_timeout_error")
				}
			},
		}
		var resolvers []string
		for idx := 1; idx <= 50; idx++ {
			resolvers = append(resolvers, fmt.Sprintf("10.0.1.%d", idx))
		}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		start := time.Now()
		stats, err := Run(ctx, &Config{
			Resolvers:   resolvers,
			Domains:     []string{"example.com"},
			Concurrency: 5,
			Timeout:     time.Minute,
			Prober:      prober,
		})
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Fatal("Run waited for the probe timeout", elapsed)
		}
		if !errors.Is(err, ErrIncomplete) {
			t.Fatal("unexpected error", err)
		}
		if stats != nil {
			t.Fatal("expected nil stats")
		}
		if calls.Load() >= 50 {
			t.Fatal("expected queued tasks to be skipped", calls.Load())
		}
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		prober := &mocks.Prober{
			MockProbe: func(ctx context.Context, resolver, domain string, timeout time.Duration) model.ProbeResult {
				<-ctx.Done()
				return model.NewProbeFailure(resolver, domain, "interrupted")
			},
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := Run(ctx, &Config{
			Resolvers:   []string{"1.1.1.1"},
			Domains:     []string{"example.com"},
			Concurrency: 1,
			Timeout:     time.Minute,
			Prober:      prober,
		})
		if !errors.Is(err, ErrIncomplete) || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatal("unexpected error", err)
		}
	})
}
