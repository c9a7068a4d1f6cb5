// Package snapshot persists the last confirmed order of each ranking in a
// local SQLite database.
//
// The engine records every list it reconciles with the backend; the CLI reads
// the cache back when the backend is unreachable. A cached list is always one
// the backend acknowledged, never an optimistic local order.
package snapshot
