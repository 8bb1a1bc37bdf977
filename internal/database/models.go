package database

import (
	"strings"
	"time"
)

// Run is a benchmark run.
type Run struct {
	ID            int64     `db:"id,omitempty"`
	UUID          string    `db:"uuid"`
	StartTime     time.Time `db:"start_time"`
	Runtime       float64   `db:"runtime"`
	Network       string    `db:"network"`
	Domains       string    `db:"domains"`
	ResolverCount int64     `db:"resolver_count"`
	IsDone        bool      `db:"is_done"`
	Selection     string    `db:"selection"`
	Interface     string    `db:"interface"`
	IsApplied     bool      `db:"is_applied"`
}

// DomainList returns the domains as a list.
func (r *Run) DomainList() []string {
	return splitList(r.Domains)
}

// SelectionList returns the selected resolvers in rank order.
func (r *Run) SelectionList() []string {
	return splitList(r.Selection)
}

// ResolverResult contains the statistics of a resolver in a run.
type ResolverResult struct {
	ID              int64   `db:"id,omitempty"`
	RunID           int64   `db:"run_id"`
	Resolver        string  `db:"resolver"`
	Rank            int64   `db:"rank"`
	SuccessCount    int64   `db:"success_count"`
	FailureCount    int64   `db:"failure_count"`
	MeanLatencyMs   float64 `db:"mean_latency_ms"`
	MedianLatencyMs float64 `db:"median_latency_ms"`
	StdDevLatencyMs float64 `db:"stddev_latency_ms"`
}

// splitList splits a space separated list.
func splitList(s string) []string {
	return strings.Fields(s)
}

// joinList creates a space separated list.
func joinList(v []string) string {
	return strings.Join(v, " ")
}
