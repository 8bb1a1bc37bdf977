package menu

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/ooni/dnsbench/internal/cli/about"
	"github.com/ooni/dnsbench/internal/cli/bench"
	"github.com/ooni/dnsbench/internal/cli/history"
	"github.com/ooni/dnsbench/internal/cli/revert"
	"github.com/ooni/dnsbench/internal/cli/root"
	"github.com/ooni/dnsbench/internal/cli/run"
	"github.com/ooni/dnsbench/internal/dnsbench"
)

// errExit is returned by an item to leave the menu.
var errExit = errors.New("menu: exit")

// item is a menu entry.
type item struct {
	label  string
	action func(ctx context.Context, b *dnsbench.Bench) error
}

var items = []item{{
	label: "[1] Set DNS",
	action: func(ctx context.Context, b *dnsbench.Bench) error {
		return run.Run(ctx, b, "")
	},
}, {
	label:  "[2] Clean DNS",
	action: revert.Revert,
}, {
	label: "[3] Benchmark only",
	action: func(ctx context.Context, b *dnsbench.Bench) error {
		_, err := bench.Benchmark(ctx, b)
		return err
	},
}, {
	label: "[4] History",
	action: func(ctx context.Context, b *dnsbench.Bench) error {
		return history.List(b.DB(), history.DefaultLimit)
	},
}, {
	label: "[9] About",
	action: func(ctx context.Context, b *dnsbench.Bench) error {
		about.Show()
		return nil
	},
}, {
	label: "[0] Exit",
	action: func(ctx context.Context, b *dnsbench.Bench) error {
		return errExit
	},
}}

// askItem allows mocking the interactive prompt in tests.
var askItem = func(labels []string) (string, error) {
	var choice string
	prompt := &survey.Select{
		Message: "What do you want to do?",
		Options: labels,
	}
	if err := survey.AskOne(prompt, &choice, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return choice, nil
}

func labels() []string {
	var out []string
	for _, entry := range items {
		out = append(out, entry.label)
	}
	return out
}

func lookup(label string) (item, bool) {
	for _, entry := range items {
		if entry.label == label {
			return entry, true
		}
	}
	return item{}, false
}

// Loop shows the menu until the user chooses to exit or interrupts the
// prompt. Errors of the actions are reported without leaving the menu.
func Loop(b *dnsbench.Bench) error {
	for {
		choice, err := askItem(labels())
		if errors.Is(err, terminal.InterruptErr) {
			return nil
		}
		if err != nil {
			return err
		}
		entry, found := lookup(choice)
		if !found {
			log.Warnf("invalid choice: %s", choice)
			continue
		}
		if err := runAction(b, entry); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			root.ReportError(err)
		}
	}
}

// runAction runs the action with a context canceled by CTRL+C, so that
// interrupting an action brings the user back to the menu.
func runAction(b *dnsbench.Bench, entry item) error {
	ctx, stop := root.SignalContext()
	defer stop()
	return entry.action(ctx, b)
}

func init() {
	cmd := root.Command("menu", "Show the interactive menu").Default()
	dryRun := cmd.Flag("dry-run", "Do not change the system configuration").Bool()

	cmd.Action(func(_ *kingpin.ParseContext) error {
		b, err := root.Init()
		if err != nil {
			log.WithError(err).Error("failed to init root context")
			return err
		}
		defer b.Close()
		b.SetDryRun(*dryRun)
		about.Show()
		return Loop(b)
	})
}
