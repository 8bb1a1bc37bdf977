// Package benchmark measures a set of resolvers against a set of domains
// using a bounded pool of concurrent probes.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/ooni/dnsbench/internal/model"
)

// MaxDefaultConcurrency is the maximum number of concurrent probes
// used by DefaultConcurrency.
const MaxDefaultConcurrency = 37

// ErrInvalidInput indicates that the Config is not valid.
var ErrInvalidInput = errors.New("benchmark: invalid input")

// ErrIncomplete indicates that the run was interrupted before all the
// probes completed. The error returned by Run wraps both this error
// and the context error.
var ErrIncomplete = errors.New("benchmark: incomplete run")

// DefaultConcurrency returns the default number of concurrent probes
// for the given number of tasks.
func DefaultConcurrency(tasks int) int {
	return max(1, min(MaxDefaultConcurrency, tasks))
}

// Config contains the configuration for Run.
type Config struct {
	// Resolvers contains the MANDATORY resolver IP addresses. An empty
	// list causes Run to return an empty result.
	Resolvers []string

	// Domains contains the MANDATORY domains to resolve.
	Domains []string

	// Concurrency is the MANDATORY number of concurrent probes.
	Concurrency int

	// Timeout is the MANDATORY per-probe timeout.
	Timeout time.Duration

	// Prober is the MANDATORY prober.
	Prober model.Prober

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// OnProgress is the OPTIONAL callback invoked after each probe
	// with the number of completed probes and the total.
	OnProgress func(done, total int)
}

// validate returns an error wrapping ErrInvalidInput if the config is invalid.
func (c *Config) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidInput)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least one", ErrInvalidInput)
	}
	if len(c.Domains) <= 0 {
		return fmt.Errorf("%w: no domains to resolve", ErrInvalidInput)
	}
	if c.Prober == nil {
		return fmt.Errorf("%w: no prober", ErrInvalidInput)
	}
	for _, resolver := range c.Resolvers {
		if _, err := netip.ParseAddr(resolver); err != nil {
			return fmt.Errorf("%w: invalid resolver %q", ErrInvalidInput, resolver)
		}
	}
	return nil
}

// task is a single (resolver, domain) probe.
type task struct {
	resolver string
	domain   string
}

// Run probes every resolver with every domain and returns the stats of
// the resolvers with at least one successful probe, keyed by resolver.
//
// Run returns only after it has received one result per task. When the
// context is done before that happens, Run returns an error wrapping
// ErrIncomplete and no stats.
func Run(ctx context.Context, config *Config) (map[string]*model.ResolverStats, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	logger := model.ValidLoggerOrDefault(config.Logger)
	resolvers := dedup(config.Resolvers)
	if len(resolvers) <= 0 {
		return map[string]*model.ResolverStats{}, nil
	}

	total := len(resolvers) * len(config.Domains)
	logger.Debugf("benchmark: %d resolvers, %d domains, %d probes, concurrency %d, timeout %s",
		len(resolvers), len(config.Domains), total, config.Concurrency, config.Timeout)

	// the run context lets us stop the workers when we return
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan task)
	results := make(chan model.ProbeResult)

	go produce(ctx, resolvers, config.Domains, tasks)

	wg := &sync.WaitGroup{}
	for idx := 0; idx < min(config.Concurrency, total); idx++ {
		wg.Add(1)
		go work(ctx, config, tasks, results, wg)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	stats := make(map[string]*model.ResolverStats)
	for _, resolver := range resolvers {
		stats[resolver] = model.NewResolverStats(resolver)
	}
	var done int
	for pr := range results {
		stats[pr.Resolver].Update(pr)
		done++
		if config.OnProgress != nil {
			config.OnProgress(done, total)
		}
	}

	if err := ctx.Err(); err != nil || done < total {
		logger.Warnf("benchmark: interrupted after %d/%d probes", done, total)
		return nil, fmt.Errorf("%w: %w", ErrIncomplete, context.Cause(ctx))
	}

	for resolver, entry := range stats {
		if entry.SuccessCount <= 0 {
			delete(stats, resolver)
			continue
		}
		// samples arrive in completion order
		slices.Sort(entry.SamplesMs)
	}
	logger.Debugf("benchmark: %d/%d resolvers answered at least once", len(stats), len(resolvers))
	return stats, nil
}

// produce emits all the tasks and closes the channel when done or when
// the context is done.
func produce(ctx context.Context, resolvers, domains []string, tasks chan<- task) {
	defer close(tasks)
	for _, resolver := range resolvers {
		for _, domain := range domains {
			select {
			case tasks <- task{resolver: resolver, domain: domain}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// work runs probes until there are no more tasks. A worker skips the
// tasks it reads after the context is done.
func work(ctx context.Context, config *Config, tasks <-chan task,
	results chan<- model.ProbeResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for t := range tasks {
		if ctx.Err() != nil {
			continue
		}
		pr := config.Prober.Probe(ctx, t.resolver, t.domain, config.Timeout)
		pr.Resolver, pr.Domain = t.resolver, t.domain
		select {
		case results <- pr:
		case <-ctx.Done():
		}
	}
}

// dedup returns the resolvers without duplicates preserving the order.
func dedup(resolvers []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, resolver := range resolvers {
		if seen[resolver] {
			continue
		}
		seen[resolver] = true
		out = append(out, resolver)
	}
	return out
}
