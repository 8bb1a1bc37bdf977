package mocks

import (
	"context"

	"github.com/ooni/dnsbench/internal/model"
)

// ConfigurationApplier allows mocking model.ConfigurationApplier.
type ConfigurationApplier struct {
	MockApply func(ctx context.Context, iface string, resolvers []string) error

	MockRevert func(ctx context.Context, ifaces []string) error
}

var _ model.ConfigurationApplier = &ConfigurationApplier{}

// Apply calls MockApply.
func (a *ConfigurationApplier) Apply(ctx context.Context, iface string, resolvers []string) error {
	return a.MockApply(ctx, iface, resolvers)
}

// Revert calls MockRevert.
func (a *ConfigurationApplier) Revert(ctx context.Context, ifaces []string) error {
	return a.MockRevert(ctx, ifaces)
}
