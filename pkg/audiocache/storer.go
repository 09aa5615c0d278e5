package audiocache

import "context"

// Storer persists and retrieves cached audio. Entries are immutable and keyed
// by content, so storing the same key twice keeps the first copy.
type Storer interface {
	// Put stores an entry. It reports whether the key was new; storing an
	// existing key is a no-op.
	Put(ctx context.Context, entry *Entry) (bool, error)

	// Get retrieves an entry by key. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, key string) (*Entry, error)

	// Has checks if an entry exists.
	Has(ctx context.Context, key string) (bool, error)

	// List returns all entries, oldest first.
	List(ctx context.Context) ([]*Entry, error)

	// Stats returns the number of entries and the total audio size in bytes.
	Stats(ctx context.Context) (Stats, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Stats summarizes the contents of a Storer.
type Stats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// ErrNotFound is returned when an entry doesn't exist in the store.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	if e.Key == "" {
		return "audio not found"
	}

	return "audio not found: " + e.Key
}
