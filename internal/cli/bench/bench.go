package bench

import (
	"context"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/ooni/dnsbench/internal/cli/root"
	"github.com/ooni/dnsbench/internal/config"
	"github.com/ooni/dnsbench/internal/dnsbench"
	"github.com/ooni/dnsbench/internal/output"
	"github.com/pkg/errors"
)

// ErrInvalidOverride indicates that a command line override is out of range.
var ErrInvalidOverride = errors.New("invalid command line override")

// Overrides contains the command line settings overriding the config.
type Overrides struct {
	Concurrency *int
	TopK        *int

	concurrencySet bool
	topKSet        bool
}

// AddFlags adds the overrides flags to cmd.
func AddFlags(cmd *kingpin.CmdClause) *Overrides {
	o := &Overrides{}
	o.Concurrency = cmd.Flag("concurrency", "Number of concurrent probes (0 means automatic)").
		IsSetByUser(&o.concurrencySet).Int()
	o.TopK = cmd.Flag("top-k", "Number of resolvers to select").
		IsSetByUser(&o.topKSet).Int()
	return o
}

// Apply applies the overrides set by the user to c.
func (o *Overrides) Apply(c *config.Config) error {
	if o.concurrencySet {
		if *o.Concurrency < 0 {
			return errors.Wrapf(ErrInvalidOverride, "--concurrency must not be negative: %d", *o.Concurrency)
		}
		c.Concurrency = *o.Concurrency
	}
	if o.topKSet {
		if *o.TopK < 1 {
			return errors.Wrapf(ErrInvalidOverride, "--top-k must be positive: %d", *o.TopK)
		}
		c.TopK = *o.TopK
	}
	return nil
}

// Benchmark runs the benchmark showing its progress and prints the results.
func Benchmark(ctx context.Context, b *dnsbench.Bench) (*dnsbench.Report, error) {
	report, err := b.Benchmark(ctx, output.ProgressBar(os.Stdout))
	if err != nil {
		return nil, err
	}
	output.ResolverItems(report.Summaries, report.Selection)
	log.Infof("saved as run %s", report.Run.UUID)
	output.Selection(report.Selection, "")
	return report, nil
}

func init() {
	cmd := root.Command("bench", "Benchmark the resolvers without changing the system")
	overrides := AddFlags(cmd)

	cmd.Action(func(_ *kingpin.ParseContext) error {
		b, err := root.Init()
		if err != nil {
			log.WithError(err).Error("failed to init root context")
			return err
		}
		defer b.Close()
		if err := overrides.Apply(b.Config()); err != nil {
			log.WithError(err).Error("invalid flags")
			return err
		}

		ctx, stop := root.SignalContext()
		defer stop()
		if _, err := Benchmark(ctx, b); err != nil {
			return root.ReportError(err)
		}
		return nil
	})
}
