// Package testutil provides test doubles for the exporter: cache backends
// with controllable failures and interleavings, and a static host state.
package testutil
