// Package model contains the shared interfaces and data structures.
//
// # Criteria for adding a type to this package
//
// This package should contain two types:
//
// 1. important interfaces that are shared by several packages
// within the codebase, with the objective of separating unrelated
// pieces of code and making unit testing easier;
//
// 2. important pieces of data that are shared across different
// packages (e.g., the result of probing a resolver).
//
// In general, this package should not contain logic, unless
// this logic is strictly related to data structures and we
// cannot implement this logic elsewhere.
//
// # Content of this package
//
// - applier.go: the contract of the collaborator that commits a
// resolver selection to the operating system;
//
// - logger.go: generic definition of an apex/log compatible logger,
// used in several places across the codebase;
//
// - netx.go: network extension interfaces used to send DNS queries;
//
// - probe.go: probe results, per-resolver statistics, and the
// ranked selection of resolvers.
package model
