package history

import (
	"strconv"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/ooni/dnsbench/internal/cli/root"
	"github.com/ooni/dnsbench/internal/database"
	"github.com/ooni/dnsbench/internal/output"
	"github.com/upper/db/v4"
)

// DefaultLimit is the default number of runs we list.
const DefaultLimit = 10

// List prints the most recent runs.
func List(sess db.Session, limit int) error {
	runs, err := database.ListRuns(sess, limit)
	if err != nil {
		return err
	}
	if len(runs) <= 0 {
		log.Info("no runs yet")
		return nil
	}
	for idx, run := range runs {
		output.RunItem(run, idx, len(runs))
	}
	return nil
}

// Show prints a run and the statistics of its resolvers.
func Show(sess db.Session, runUUID string) error {
	run, results, err := database.GetRun(sess, runUUID)
	if err != nil {
		return err
	}
	output.RunItem(*run, 0, 1)
	output.ResolverResults(results)
	return nil
}

func init() {
	cmd := root.Command("history", "Show the previous runs")

	listCmd := cmd.Command("list", "List the most recent runs").Default()
	limit := listCmd.Flag("limit", "Maximum number of runs to list (0 means all)").Default(strconv.Itoa(DefaultLimit)).Int()
	listCmd.Action(func(_ *kingpin.ParseContext) error {
		b, err := root.Init()
		if err != nil {
			log.WithError(err).Error("failed to init root context")
			return err
		}
		defer b.Close()
		if err := List(b.DB(), *limit); err != nil {
			log.WithError(err).Error("failed to list runs")
			return err
		}
		return nil
	})

	showCmd := cmd.Command("show", "Show a run")
	showUUID := showCmd.Arg("uuid", "the run UUID").Required().String()
	showCmd.Action(func(_ *kingpin.ParseContext) error {
		b, err := root.Init()
		if err != nil {
			log.WithError(err).Error("failed to init root context")
			return err
		}
		defer b.Close()
		if err := Show(b.DB(), *showUUID); err != nil {
			log.WithError(err).Error("failed to show run")
			return err
		}
		return nil
	})

	rmCmd := cmd.Command("rm", "Delete a run")
	rmUUID := rmCmd.Arg("uuid", "the run UUID").Required().String()
	rmCmd.Action(func(_ *kingpin.ParseContext) error {
		b, err := root.Init()
		if err != nil {
			log.WithError(err).Error("failed to init root context")
			return err
		}
		defer b.Close()
		if err := database.DeleteRun(b.DB(), *rmUUID); err != nil {
			log.WithError(err).Error("failed to delete run")
			return err
		}
		log.Infof("deleted run %s", *rmUUID)
		return nil
	})
}
