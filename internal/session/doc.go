// Package session provides interview session and message persistence with
// PostgreSQL.
//
// A session is one interview conversation: job title, company, topic,
// difficulty, and a lifecycle status (in-progress or completed). Messages are
// the ordered turns within it, user and AI alternating, each carrying text
// and optionally an opaque audio key pointing into blob storage.
//
// # Transaction safety
//
// [Store.AddMessages] locks the session row with SELECT ... FOR UPDATE before
// assigning sequence numbers, so concurrent writers cannot produce duplicate
// positions. If any step fails the whole batch rolls back.
//
// # Concurrency
//
// Store is safe for concurrent use. All state lives in PostgreSQL; there is
// no shared Go-side state.
package session
