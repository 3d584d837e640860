// Package chat implements the client-side message synchronization core for
// interview conversations.
//
// Three parts cooperate to keep the rendered conversation consistent with the
// backend while showing the user's own turns immediately:
//
//   - [Cache]: per-session ordered message lists, the single source of truth
//     for rendering. Passive; no network access.
//   - [Coordinator]: drives one send operation (text or audio) end to end.
//     It inserts a locally-tagged pending message before the network call and
//     hands the settled outcome to the reconciler.
//   - reconciler: merges a server-confirmed result (or a failure) back into
//     the cache, preserving order.
//
// # Message lifecycle
//
// A send inserts a pending message with a local id (local-<uuid>) at the tail
// of the session's partition. On success the pending entry is replaced in
// place by the server's durable user message and the AI reply is appended
// after it. On failure a text send restores the exact pre-send snapshot; an
// audio send removes only the placeholder.
//
// # Ordering and refetches
//
// Confirmed history is append-only: the reconciler never reorders existing
// entries. Any in-flight background refetch for a session MUST be cancelled
// before the pending insert, otherwise the refetch result could silently
// overwrite the optimistic entry; [Cache.BeginRefresh] and
// [Cache.CancelRefresh] enforce this, and [Cache.SetFromRefresh] discards
// results of a refetch that lost the race.
//
// # Concurrency
//
// Cache and Coordinator are safe for concurrent use: sends settle on their
// own goroutines while the UI event loop reads the cache. Two concurrent
// sends for the same session are rejected with [ErrSendInFlight] rather than
// leaving the relative order of AI replies undefined.
package chat
