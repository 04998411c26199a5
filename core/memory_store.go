package core

import "context"

// HistoryStore holds the bounded conversational memory carried across
// orchestrator requests. Implementations keep an in-memory buffer and may
// project it onto durable storage shared with out-of-band collaborators.
type HistoryStore interface {
	// Load (re)reads the durable projection into the buffer and returns it.
	Load(ctx context.Context) ([]Message, error)
	// Entries returns a snapshot of the buffer.
	Entries() []Message
	// Append adds entries to the buffer and persists the full buffer.
	Append(ctx context.Context, entries ...Message) error
	// RefreshIfStale reloads the buffer when the durable projection changed
	// behind the store's back, or empties it when the projection vanished.
	RefreshIfStale(ctx context.Context) error
	// Reset empties the buffer and its durable projection.
	Reset(ctx context.Context) error
}
