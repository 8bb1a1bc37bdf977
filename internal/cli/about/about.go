package about

import (
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/mitchellh/go-wordwrap"
	"github.com/ooni/dnsbench/internal/cli/root"
	"github.com/ooni/dnsbench/internal/output"
	"github.com/ooni/dnsbench/internal/version"
)

// width is the inner width of the about box.
const width = 56

const text = `dnsbench measures the latency of the resolvers listed in the
resolvers file, selects the fastest ones and configures them as the DNS
servers of a network interface using resolvectl. Use the revert command
to restore the automatic configuration of every interface.`

// Lines returns the about text wrapped to fit the about box.
func Lines() []string {
	return strings.Split(wordwrap.WrapString(strings.ReplaceAll(text, "\n", " "), width), "\n")
}

// Show prints information about dnsbench.
func Show() {
	output.SectionTitle("dnsbench "+version.Version, width)
	for _, line := range Lines() {
		log.Info(line)
	}
}

func init() {
	cmd := root.Command("about", "Show information about dnsbench.")
	cmd.Action(func(_ *kingpin.ParseContext) error {
		Show()
		return nil
	})
}
