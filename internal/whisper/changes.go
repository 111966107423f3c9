package whisper

import "context"

// RecordChangeSet aggregates catalog record upserts and deletions. Deletions
// carry the relative paths of removed files.
type RecordChangeSet struct {
	Upserts   []FileRecord
	Deletions []string
}

// Merge combines another change set into the receiver.
func (c *RecordChangeSet) Merge(other RecordChangeSet) {
	if len(other.Upserts) > 0 {
		c.Upserts = append(c.Upserts, other.Upserts...)
	}
	if len(other.Deletions) > 0 {
		c.Deletions = append(c.Deletions, other.Deletions...)
	}
}

// IsEmpty reports whether there are no recorded changes.
func (c RecordChangeSet) IsEmpty() bool {
	return len(c.Upserts) == 0 && len(c.Deletions) == 0
}

// SyncTarget consumes record change notifications.
type SyncTarget interface {
	ApplyRecordChanges(ctx context.Context, changes RecordChangeSet) error
}
