// Package persist keeps reactively-observed state cells synchronized with a
// key-value storage backend. Every observed cell contributes one entry to a
// single snapshot mapping persisted under one storage key; cells are restored
// from that snapshot when they initialize and re-persisted on every external
// set.
//
// Responsibilities:
//   - Persister resolves its storage key and backend once at construction and
//     produces per-cell Effects for the host reactive engine.
//   - ReadSnapshot/WriteSnapshot normalize every storage outcome (missing,
//     malformed, synchronous, deferred) into a plain Snapshot; read and write
//     failures are absorbed and logged, never surfaced to the engine.
//   - Storage implementations may settle immediately or asynchronously; both
//     shapes are carried by the explicit Result type so callers branch
//     exhaustively instead of inspecting runtime shapes.
//
// Data flow:
//
//	engine -> Effect(Attachment) -> ReadSnapshot -> mutate -> WriteSnapshot -> Storage
//
// Consistency:
//
//	Within one set invocation the write never starts before its own read
//	completes. Across cells sharing a snapshot there is no ordering: two
//	near-simultaneous sets can both read before either writes, and the last
//	write wins. The snapshot blob is best-effort shared state, not a
//	transactional store.
package persist
