// Package output emits the typed logs rendered by the CLI log handler.
package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/ooni/dnsbench/internal/database"
	"github.com/ooni/dnsbench/internal/model"
	"github.com/ooni/dnsbench/internal/selection"
	"github.com/schollz/progressbar/v3"
)

// SectionTitle logs a title centered inside a box of the given width.
func SectionTitle(title string, width int) {
	log.WithFields(log.Fields{
		"type":  "section_title",
		"title": title,
		"width": width,
	}).Info(title)
}

// ResolverItems logs the table of the resolver summaries, marking the
// rank of the resolvers included in the selection.
func ResolverItems(summaries []selection.Summary, ranked model.RankedSelection) {
	rank := map[string]int{}
	for idx, entry := range ranked {
		rank[entry.Resolver] = idx + 1
	}
	for idx, summary := range summaries {
		log.WithFields(log.Fields{
			"type":        "resolver_item",
			"index":       idx,
			"total_count": len(summaries),

			"rank":              rank[summary.Resolver],
			"resolver":          summary.Resolver,
			"mean_latency_ms":   summary.MeanLatencyMs,
			"median_latency_ms": summary.MedianLatencyMs,
			"stddev_latency_ms": summary.StdDevLatencyMs,
			"success_count":     summary.SuccessCount,
			"failure_count":     summary.FailureCount,
		}).Info(summary.Resolver)
	}
}

// ResolverResults logs the table of the resolver results of a saved run.
func ResolverResults(results []database.ResolverResult) {
	for idx, result := range results {
		log.WithFields(log.Fields{
			"type":        "resolver_item",
			"index":       idx,
			"total_count": len(results),

			"rank":              int(result.Rank),
			"resolver":          result.Resolver,
			"mean_latency_ms":   result.MeanLatencyMs,
			"median_latency_ms": result.MedianLatencyMs,
			"stddev_latency_ms": result.StdDevLatencyMs,
			"success_count":     int(result.SuccessCount),
			"failure_count":     int(result.FailureCount),
		}).Info(result.Resolver)
	}
}

// RunItem logs a run of the history.
func RunItem(run database.Run, index, totalCount int) {
	log.WithFields(log.Fields{
		"type":        "run_item",
		"index":       index,
		"total_count": totalCount,

		"uuid":           run.UUID,
		"start_time":     run.StartTime,
		"network":        run.Network,
		"domains":        run.Domains,
		"resolver_count": run.ResolverCount,
		"selection":      run.Selection,
		"interface":      run.Interface,
		"is_done":        run.IsDone,
		"is_applied":     run.IsApplied,
	}).Info(run.UUID)
}

// Selection logs the selected resolvers as a table.
func Selection(ranked model.RankedSelection, iface string) {
	fields := log.Fields{
		"type":      "table",
		"resolvers": strings.Join(ranked.Addresses(), " "),
	}
	if iface != "" {
		fields["interface"] = iface
	}
	log.WithFields(fields).Info("selection")
}

// ProgressBar returns a function suitable for reporting the progress
// of a benchmark, which draws a progress bar on w.
func ProgressBar(w io.Writer) func(done, total int) {
	var (
		bar  *progressbar.ProgressBar
		once sync.Once
	)
	return func(done, total int) {
		once.Do(func() {
			bar = progressbar.NewOptions(
				total,
				progressbar.OptionSetDescription("probing"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprint(w, "\n")
				}),
				progressbar.OptionSetWriter(w),
			)
		})
		bar.Set(done)
	}
}
