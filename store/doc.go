// Package store provides the DynamoDB document-store client the rest of
// the system builds on.
//
// Every collection is a flat DynamoDB table of schemaless documents keyed
// by a single string attribute. The store exposes the primitives the
// domain and reactor layers need and nothing else:
//
//   - Point reads and writes ([Store.Get], [Store.Put], [Store.Delete])
//   - Conditional creates that collide instead of racing an existence
//     check ([Store.Create])
//   - Atomic field-level counter deltas with a zero floor
//     ([Store.AddToCounter])
//   - Paginated index queries and full scans ([Store.QueryIndex],
//     [Store.ScanAll])
//   - Transactional multi-document batches within one table
//     ([Store.TransactDelete], [Store.TransactSetField])
//
// Atomicity is available only within a single batch against a single
// table. There is no cross-table transaction; referential integrity
// across collections is maintained by the reactors in package stream.
//
// # Errors
//
//   - [ErrNotFound] - document doesn't exist
//   - [ErrAlreadyExists] - conditional create collided
//   - [ErrConditionFailed] - guarded write condition did not hold
package store
