package storage

import (
	"context"
	"iter"

	"github.com/poiesic/mboxsearch/core"
)

// MessageRepository resolves archived messages by ID.
// Implementations must be safe for concurrent readers.
type MessageRepository interface {
	// GetEmail decodes the message with the given ID.
	// Returns ErrNotFound if the ID is out of range and ErrDecode if a header
	// cannot be decoded. Undecodable bodies leave the body fields nil.
	GetEmail(id core.ID) (*core.Message, error)

	// CountEmails returns the number of loaded records.
	CountEmails() int

	// Emails yields every resolvable message in ID order.
	// Messages that fail to resolve are skipped. The sequence can be ranged over
	// more than once.
	Emails() iter.Seq[*core.Message]

	// Close releases the underlying archive view.
	Close() error
}

// EmbeddingRepository persists vectors keyed by content hash.
type EmbeddingRepository interface {
	// GetEmbeddings returns the stored vectors for the given keys.
	// Missing keys are absent from the result; this is not an error.
	GetEmbeddings(ctx context.Context, keys ...core.ID) (map[core.ID][]float32, error)

	// PutEmbeddings stores vectors, replacing any existing entries.
	PutEmbeddings(ctx context.Context, vectors map[core.ID][]float32) error

	// Close releases repository resources. It does not close the backend.
	Close() error
}
