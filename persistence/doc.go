// Package persistence provides durable storage for workflows, tasks, and
// synced agent definitions.
//
// The Store interface exposes fine-grained atomic operations: status
// promotions and claims are compare-and-set, and result application runs
// in a transaction that re-reads the owning workflow so results arriving
// after cancellation are discarded. GormStore is the production
// implementation (PostgreSQL, SQLite in tests); MemoryStore backs unit
// tests.
package persistence
