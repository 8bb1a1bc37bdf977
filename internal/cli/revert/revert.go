package revert

import (
	"context"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/ooni/dnsbench/internal/cli/root"
	"github.com/ooni/dnsbench/internal/dnsbench"
)

// Revert restores the automatic DNS configuration of every link.
func Revert(ctx context.Context, b *dnsbench.Bench) error {
	links, err := b.Revert(ctx)
	if err != nil {
		return err
	}
	log.Infof("reverted the DNS configuration of %s", strings.Join(links, " "))
	return nil
}

func init() {
	cmd := root.Command("revert", "Restore the automatic DNS configuration")
	dryRun := cmd.Flag("dry-run", "Do not change the system configuration").Bool()

	cmd.Action(func(_ *kingpin.ParseContext) error {
		b, err := root.Init()
		if err != nil {
			log.WithError(err).Error("failed to init root context")
			return err
		}
		defer b.Close()
		b.SetDryRun(*dryRun)

		ctx, stop := root.SignalContext()
		defer stop()
		if err := Revert(ctx, b); err != nil {
			return root.ReportError(err)
		}
		return nil
	})
}
