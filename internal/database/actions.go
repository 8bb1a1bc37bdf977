package database

import (
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/ooni/dnsbench/internal/model"
	"github.com/ooni/dnsbench/internal/selection"
	"github.com/pkg/errors"
	"github.com/upper/db/v4"
)

// CreateRun writes a new Run to the database and returns a pointer to it.
func CreateRun(sess db.Session, network string, domains []string, resolverCount int) (*Run, error) {
	run := Run{
		UUID:          uuid.NewString(),
		StartTime:     time.Now().UTC(),
		Network:       network,
		Domains:       joinList(domains),
		ResolverCount: int64(resolverCount),
	}
	log.Debugf("Creating run %s", run.UUID)
	res, err := sess.Collection("runs").Insert(run)
	if err != nil {
		return nil, errors.Wrap(err, "creating run")
	}
	run.ID = res.ID().(int64)
	return &run, nil
}

// Finished marks the run as done, saving the per-resolver summaries
// and the ranked selection in a single transaction.
func (r *Run) Finished(sess db.Session, summaries []selection.Summary, ranked model.RankedSelection) error {
	rank := map[string]int64{}
	for idx, entry := range ranked {
		rank[entry.Resolver] = int64(idx + 1)
	}
	r.IsDone = true
	r.Runtime = time.Since(r.StartTime).Seconds()
	r.Selection = joinList(ranked.Addresses())
	err := sess.Tx(func(tx db.Session) error {
		for _, summary := range summaries {
			result := ResolverResult{
				RunID:           r.ID,
				Resolver:        summary.Resolver,
				Rank:            rank[summary.Resolver],
				SuccessCount:    int64(summary.SuccessCount),
				FailureCount:    int64(summary.FailureCount),
				MeanLatencyMs:   summary.MeanLatencyMs,
				MedianLatencyMs: summary.MedianLatencyMs,
				StdDevLatencyMs: summary.StdDevLatencyMs,
			}
			if _, err := tx.Collection("resolver_results").Insert(result); err != nil {
				return err
			}
		}
		return tx.Collection("runs").Find(db.Cond{"id": r.ID}).Update(r)
	})
	if err != nil {
		return errors.Wrap(err, "updating finished run")
	}
	return nil
}

// Applied records that the run selection has been applied to iface.
func (r *Run) Applied(sess db.Session, iface string) error {
	r.IsApplied = true
	r.Interface = iface
	if err := sess.Collection("runs").Find(db.Cond{"id": r.ID}).Update(r); err != nil {
		return errors.Wrap(err, "updating applied run")
	}
	return nil
}

// ListRuns returns at most limit runs, starting from the most recent. A
// limit lower than one means no limit.
func ListRuns(sess db.Session, limit int) ([]Run, error) {
	runs := []Run{}
	res := sess.Collection("runs").Find().OrderBy("-start_time", "-id")
	if limit > 0 {
		res = res.Limit(limit)
	}
	if err := res.All(&runs); err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	return runs, nil
}

// GetRun returns the run with the given UUID and its resolver results
// ordered by mean latency.
func GetRun(sess db.Session, runUUID string) (*Run, []ResolverResult, error) {
	var run Run
	if err := sess.Collection("runs").Find(db.Cond{"uuid": runUUID}).One(&run); err != nil {
		return nil, nil, errors.Wrapf(err, "getting run %s", runUUID)
	}
	results := []ResolverResult{}
	err := sess.Collection("resolver_results").
		Find(db.Cond{"run_id": run.ID}).
		OrderBy("mean_latency_ms", "resolver").
		All(&results)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing resolver results")
	}
	return &run, results, nil
}

// DeleteRun deletes the run with the given UUID and its resolver results.
func DeleteRun(sess db.Session, runUUID string) error {
	err := sess.Tx(func(tx db.Session) error {
		var run Run
		if err := tx.Collection("runs").Find(db.Cond{"uuid": runUUID}).One(&run); err != nil {
			return err
		}
		if err := tx.Collection("resolver_results").Find(db.Cond{"run_id": run.ID}).Delete(); err != nil {
			return err
		}
		return tx.Collection("runs").Find(db.Cond{"id": run.ID}).Delete()
	})
	if err != nil {
		return errors.Wrapf(err, "deleting run %s", runUUID)
	}
	return nil
}
