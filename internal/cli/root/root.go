package root

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/ooni/dnsbench/internal/applier"
	"github.com/ooni/dnsbench/internal/benchmark"
	"github.com/ooni/dnsbench/internal/config"
	"github.com/ooni/dnsbench/internal/dnsbench"
	"github.com/ooni/dnsbench/internal/log/handlers/cli"
	"github.com/ooni/dnsbench/internal/version"
)

// Cmd is the root command
var Cmd = kingpin.New("dnsbench", "Find the fastest DNS resolvers and use them.")

// Command is syntax sugar for defining sub-commands
var Command = Cmd.Command

// Init should be called by all subcommand that care to have a dnsbench.Bench instance
var Init func() (*dnsbench.Bench, error)

func init() {
	configPath := Cmd.Flag("config", "Set a custom config file path").Short('c').String()
	verbose := Cmd.Flag("verbose", "Enable verbose log output.").Short('v').Bool()

	Cmd.PreAction(func(ctx *kingpin.ParseContext) error {
		log.SetHandler(cli.Default)
		if *verbose {
			log.SetLevel(log.DebugLevel)
			log.Debugf("dnsbench version %s", version.Version)
		}

		Init = func() (*dnsbench.Bench, error) {
			home, err := config.DefaultHome()
			if err != nil {
				return nil, err
			}
			b := dnsbench.NewBench(*configPath, home)
			if err := b.Init(); err != nil {
				return nil, err
			}
			return b, nil
		}

		return nil
	})
}

// SignalContext returns a context that is canceled when the user
// interrupts the program with CTRL+C or the program receives SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ReportError logs a message describing err for the user and returns err.
func ReportError(err error) error {
	switch {
	case errors.Is(err, benchmark.ErrIncomplete):
		log.Warn("The user pressed CTRL+C: the benchmark was interrupted")
	case errors.Is(err, dnsbench.ErrNoResolverResponded):
		log.Error("No DNS server responded: check your connectivity or the resolvers list")
	case errors.Is(err, benchmark.ErrInvalidInput):
		log.WithError(err).Error("Invalid benchmark input: check the configuration file")
	case errors.Is(err, applier.ErrUtilityMissing):
		log.WithError(err).Error("Cannot configure DNS: is systemd-resolved installed?")
	case errors.Is(err, applier.ErrPermissionDenied):
		log.WithError(err).Error("Cannot configure DNS: permission denied, try running with sudo")
	case errors.Is(err, applier.ErrConfiguration):
		log.WithError(err).Error("Cannot configure DNS")
	case errors.Is(err, context.Canceled), errors.Is(err, terminal.InterruptErr):
		log.Warn("The user pressed CTRL+C")
	default:
		log.WithError(err).Error("failure")
	}
	return err
}
