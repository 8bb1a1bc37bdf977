package run

import (
	"context"
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/ooni/dnsbench/internal/cli/bench"
	"github.com/ooni/dnsbench/internal/cli/root"
	"github.com/ooni/dnsbench/internal/dnsbench"
	"github.com/ooni/dnsbench/internal/netifaces"
	"github.com/ooni/dnsbench/internal/output"
)

// ErrNoInterfaces indicates that there are no interfaces to configure.
var ErrNoInterfaces = errors.New("run: no network interfaces")

// listInterfaces allows mocking netifaces.List in tests.
var listInterfaces = netifaces.List

// askInterface allows mocking the interactive prompt in tests.
var askInterface = func(ifaces []string) (string, error) {
	var name string
	prompt := &survey.Select{
		Message: "Choose the network interface to configure:",
		Options: ifaces,
	}
	if err := survey.AskOne(prompt, &name); err != nil {
		return "", err
	}
	return name, nil
}

// PickInterface returns iface if not empty, otherwise asks the user to
// choose among the available interfaces. When there is a single interface
// we use it without asking.
func PickInterface(iface string) (string, error) {
	if iface != "" {
		return iface, nil
	}
	ifaces, err := listInterfaces()
	if err != nil {
		return "", err
	}
	switch len(ifaces) {
	case 0:
		return "", ErrNoInterfaces
	case 1:
		log.Infof("using the only available interface: %s", ifaces[0])
		return ifaces[0], nil
	default:
		return askInterface(ifaces)
	}
}

// Run benchmarks the resolvers and applies the selection to iface. An
// empty iface means that we should ask the user.
func Run(ctx context.Context, b *dnsbench.Bench, iface string) error {
	report, err := bench.Benchmark(ctx, b)
	if err != nil {
		return err
	}
	iface, err = PickInterface(iface)
	if err != nil {
		return err
	}
	if err := b.Apply(ctx, report, iface); err != nil {
		return err
	}
	output.Selection(report.Selection, iface)
	log.Infof("%s now uses %s", iface, strings.Join(report.Selection.Addresses(), " "))
	return nil
}

func init() {
	cmd := root.Command("run", "Benchmark the resolvers and use the fastest ones")
	overrides := bench.AddFlags(cmd)
	iface := cmd.Flag("interface", "Network interface to configure").Short('i').String()
	dryRun := cmd.Flag("dry-run", "Do not change the system configuration").Bool()

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
		b.SetDryRun(*dryRun)

		ctx, stop := root.SignalContext()
		defer stop()
		if err := Run(ctx, b, *iface); err != nil {
			return root.ReportError(err)
		}
		return nil
	})
}
