// Package store provides the reference (non-production) revision
// snapshot provider the engine's external interfaces describe (§6): a
// SQLite-backed document store answering getRevisionDocuments and
// supporting the bucket-diff operation.
//
// Deckhand's own storage model is out of scope for the rendering
// engine — §1 treats "the durable revision store" purely as an
// external collaborator, specified only by the query surface the
// engine consumes. This package is a runnable stand-in for that
// collaborator, not a re-implementation of Deckhand's transactional
// document store: it is a small enough surface for the CLI and
// integration tests to exercise real revisions against, ingesting raw
// document streams bucket by bucket and materialising the linear
// revision history a bucket-scoped PUT produces.
//
// # Storage model
//
//   - A revision is an autoincrementing integer. Revision 0 is the
//     distinguished empty revision and is never persisted.
//   - PutBucket ingests a raw YAML stream as the complete post-state of
//     one bucket, and atomically creates a new revision containing that
//     post-state merged with the unchanged state of every other bucket
//     (§3 Lifecycle) by carrying forward the prior revision's rows for
//     buckets other than the one just written.
//   - Each document is stored as the individual YAML chunk it arrived
//     in, keyed by (revision, bucket, schema, name); RevisionDocuments
//     re-parses a revision's chunks back into the engine's document and
//     control-document types via internal/document.ParseStream.
//
// # Database configuration
//
//   - WAL mode for concurrent reads during writes.
//   - synchronous=NORMAL: balances durability and performance.
//   - busy_timeout=5000: waits for locks up to 5 seconds.
//   - foreign_keys=ON: enforces the documents→revisions reference.
package store
