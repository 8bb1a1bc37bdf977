package model

//
// Applying a selection
//

import "context"

// ConfigurationApplier commits a resolver selection to the operating
// system network stack and reverts it.
type ConfigurationApplier interface {
	// Apply makes resolvers, in order, the DNS servers of iface.
	Apply(ctx context.Context, iface string, resolvers []string) error

	// Revert restores the automatic DNS configuration of each interface. All
	// the interfaces are attempted even if some of them fail, and the returned
	// error tells which interfaces failed.
	Revert(ctx context.Context, ifaces []string) error
}
