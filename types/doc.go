// Package types defines the shared value types exchanged between the
// querysift components and their host application: query analyses,
// memories, retrieval strategies, search results, and the unified
// error taxonomy.
//
// Everything here is an immutable snapshot from the caller's point of
// view; components never mutate a value they did not create.
package types
