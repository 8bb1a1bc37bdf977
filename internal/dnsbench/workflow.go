package dnsbench

import (
	"context"
	"errors"

	"github.com/ooni/dnsbench/internal/benchmark"
	"github.com/ooni/dnsbench/internal/database"
	"github.com/ooni/dnsbench/internal/inputloading"
	"github.com/ooni/dnsbench/internal/model"
	"github.com/ooni/dnsbench/internal/selection"
)

// ErrNoResolverResponded indicates that a benchmark completed but
// no resolver answered any probe.
var ErrNoResolverResponded = errors.New("dnsbench: no DNS server responded")

// ErrNoLinks indicates that there are no links to revert.
var ErrNoLinks = errors.New("dnsbench: no links to revert")

// Report is the outcome of a completed benchmark.
type Report struct {
	// Run is the history entry of the benchmark.
	Run *database.Run

	// Summaries contains the statistics of each resolver that answered
	// at least once, fastest first.
	Summaries []selection.Summary

	// Selection contains the top-K resolvers.
	Selection model.RankedSelection
}

// Benchmark loads the candidate resolvers, probes them and selects the
// fastest ones. The run is saved into the history database.
//
// When no resolver responded, Benchmark returns both the report and an
// error wrapping ErrNoResolverResponded.
func (b *Bench) Benchmark(ctx context.Context, onProgress func(done, total int)) (*Report, error) {
	c := b.config
	resolvers, err := inputloading.LoadResolvers(c.ResolversFile, b.logger)
	if err != nil {
		return nil, err
	}
	if len(resolvers) <= 0 {
		b.logger.Warnf("no valid resolvers in %s", c.ResolversFile)
	}

	run, err := database.CreateRun(b.db, c.Network, c.Domains, len(resolvers))
	if err != nil {
		return nil, err
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = benchmark.DefaultConcurrency(len(resolvers) * len(c.Domains))
	}
	b.logger.Infof("probing %d resolvers using %d domains over %s",
		len(resolvers), len(c.Domains), c.Network)

	stats, err := benchmark.Run(ctx, &benchmark.Config{
		Resolvers:   resolvers,
		Domains:     c.Domains,
		Concurrency: concurrency,
		Timeout:     c.Timeout(),
		Prober:      b.newProber(b.logger, c.Network),
		Logger:      b.logger,
		OnProgress:  onProgress,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Run:       run,
		Summaries: selection.Summarize(stats),
		Selection: selection.Select(stats, c.TopK),
	}
	if err := run.Finished(b.db, report.Summaries, report.Selection); err != nil {
		return nil, err
	}
	if len(report.Selection) <= 0 {
		return report, ErrNoResolverResponded
	}
	return report, nil
}

// Apply applies the selection of the report to iface. In dry run mode
// the history is not updated.
func (b *Bench) Apply(ctx context.Context, report *Report, iface string) error {
	if err := b.Applier().Apply(ctx, iface, report.Selection.Addresses()); err != nil {
		return err
	}
	if b.dryRun {
		return nil
	}
	return report.Run.Applied(b.db, iface)
}

// Revert restores the automatic DNS configuration of every link known
// to systemd-resolved and returns the links we attempted.
func (b *Bench) Revert(ctx context.Context) ([]string, error) {
	links, err := b.newLinkLister(b.config, b.logger).Links(ctx)
	if err != nil {
		return nil, err
	}
	if len(links) <= 0 {
		return nil, ErrNoLinks
	}
	return links, b.Applier().Revert(ctx, links)
}
