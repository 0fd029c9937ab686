// Package types defines the Store interface, attribute specifications,
// shared value types, and standard errors for the metanode persistence
// system.
// See docs in pkg/metanode for the field and node layers built on top.
package types
