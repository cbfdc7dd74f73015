// Package ki provides structured-concurrency primitives for Go: a Scope
// that owns the lifetime of every child task forked through it, and a
// small family of fork variants that decide how a child's failure reaches
// its parent. A child spawned through a Scope never outlives the call to
// Scoped that created it.
package ki
