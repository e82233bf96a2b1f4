package modelcache

import (
	"errors"

	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// Priority decides which entries are compacted first when the cache is over
// its size limit. Lower priorities go first; NeverRemove entries stay until
// they are removed explicitly.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityNeverRemove
)

// String returns the string representation of the priority
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityNeverRemove:
		return "never_remove"
	default:
		return "unknown"
	}
}

// EntryOptions weigh a cache entry
type EntryOptions struct {
	// Size counts against the cache size limit. Zero means 1.
	Size int64
	// Priority orders entries for compaction
	Priority Priority
}

// ErrEntryTooLarge is returned when an entry cannot fit even after compaction
var ErrEntryTooLarge = errors.New("cache entry exceeds the available size")

// Cache stores finalized models by key. Implementations must be safe for
// concurrent use. Eviction policy belongs to the implementation; callers
// only weigh their entries.
type Cache interface {
	// Get returns the model stored under key
	Get(key any) (schema.ReadOnlyModel, bool)
	// Set stores model under key, replacing any previous entry
	Set(key any, model schema.ReadOnlyModel, opts EntryOptions) error
	// Remove drops the entry stored under key and reports whether it existed
	Remove(key any) bool
	// Len returns the number of entries
	Len() int
	// Clear drops every entry
	Clear()
}
