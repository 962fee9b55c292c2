// Package memoryengine provides an in-memory snapshot repository.
//
// It implements history.SnapshotRepository with the same ordering, paging, and
// conflict semantics as the Postgres engine, which makes it suitable for tests,
// examples, and short-lived processes.
package memoryengine
