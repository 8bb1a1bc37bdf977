// Package version contains the dnsbench version.
package version

// Version is the dnsbench version.
const Version = "0.1.0-dev"
