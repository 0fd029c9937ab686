// Package metanode maps typed, in-memory values onto named slots of an
// externally owned attribute store (see pkg/types.Store).
//
// Client code declares a schema of typed fields on a persistent entity,
// reads and writes those fields through validators, and reconstructs the
// correct kind of wrapper purely from data already stored on the entity.
// The schema itself is persisted on the entity as a JSON blob, so no
// external schema file is needed.
//
// A Context owns the identity cache (one live wrapper per entity) and the
// kind and validator registries. All operations are synchronous and
// expected to run on the host application's main loop.
package metanode
