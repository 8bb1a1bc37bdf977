package applier

import (
	"context"
	"strings"

	"github.com/ooni/dnsbench/internal/model"
)

// NoOp is a model.ConfigurationApplier that only logs what it would do.
//
// We use it for dry runs, where the user wants to see the selection
// without changing the system configuration.
type NoOp struct {
	// Logger is the OPTIONAL logger.
	Logger model.Logger
}

var _ model.ConfigurationApplier = &NoOp{}

// Apply implements model.ConfigurationApplier.
func (n *NoOp) Apply(ctx context.Context, iface string, resolvers []string) error {
	model.ValidLoggerOrDefault(n.Logger).Infof(
		"dry run: would configure %s to use %s", iface, strings.Join(resolvers, " "))
	return nil
}

// Revert implements model.ConfigurationApplier.
func (n *NoOp) Revert(ctx context.Context, ifaces []string) error {
	for _, iface := range ifaces {
		model.ValidLoggerOrDefault(n.Logger).Infof("dry run: would revert %s", iface)
	}
	return nil
}
