// Package pebblestore implements the storage collaborator contract on top of
// Pebble: queue, message, and claim controllers over a single keyspace.
//
// Layout (all keys project-scoped, lexicographically ordered):
//
//	q/{project}/{queue}                queue record (metadata)
//	m/{project}/{queue}/{message_id}   message record
//	c/{project}/{queue}/{claim_id}     claim record
//
// Message ids are time-ordered (pkg/id), so iterating the message prefix
// yields submission order and the last id of a page doubles as the next
// pagination marker. Expired messages and claims are skipped on read and
// reaped opportunistically.
//
// Usage:
//
//	store, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer store.Close()
package pebblestore
