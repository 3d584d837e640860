package chat

import "log/slog"

// reconciler applies the outcome of a settled send to the cache,
// deterministically. Each operation is invoked at most once per settled
// mutation; the coordinator guarantees single invocation.
type reconciler struct {
	cache  *Cache
	logger *slog.Logger
}

// commitText replaces the pending entry (matched by its local id) with the
// confirmed user message and appends the AI reply after it. A result missing
// either message is malformed: the cache is left untouched rather than
// partially applied.
func (r reconciler) commitText(sessionID, localID string, res SendResult) error {
	return r.commit("text", sessionID, localID, res)
}

// commitAudio is commitText for audio sends; the pending entry carried the
// sentinel placeholder rather than user-typed text.
func (r reconciler) commitAudio(sessionID, localID string, res SendResult) error {
	return r.commit("audio", sessionID, localID, res)
}

func (r reconciler) commit(kind, sessionID, localID string, res SendResult) error {
	if res.UserMessage == nil || res.AIMessage == nil {
		r.logger.Error("malformed send result, cache not modified",
			"kind", kind,
			"session_id", sessionID,
			"local_id", localID,
			"has_user", res.UserMessage != nil,
			"has_ai", res.AIMessage != nil)
		return ErrMalformedResult
	}
	r.cache.Replace(sessionID, localID, *res.UserMessage)
	r.cache.Append(sessionID, *res.AIMessage)
	return nil
}

// rollback restores the session's partition to the snapshot taken before the
// optimistic insert.
func (r reconciler) rollback(sessionID string, snapshot []Message) {
	r.cache.Set(sessionID, snapshot)
}

// discardPending removes only the placeholder, leaving confirmed history
// untouched.
func (r reconciler) discardPending(sessionID, localID string) {
	r.cache.Remove(sessionID, localID)
}
