// Package storage defines the contract between the API dispatcher and a
// storage backend: controller interfaces for queues, messages, and claims,
// the transient views those controllers exchange with the core, and the
// typed errors every backend must use for well-known failure conditions.
//
// The dispatcher depends only on this package; concrete backends live in
// subpackages (see storage/pebble).
package storage
