package client

import (
	"sync"
	"time"

	"spookify/model"

	"github.com/google/uuid"
)

// ActivityLog is the in-memory audit trail of user actions. Entries are kept
// newest first and survive only as long as the process; the user may clear
// them at any time.
type ActivityLog struct {
	mu      sync.Mutex
	entries []model.Activity
}

// NewActivityLog creates an empty log.
func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

// Add prepends a new entry.
func (l *ActivityLog) Add(kind model.ActivityKind, message, songTitle, playlistName string) {
	entry := model.Activity{
		ID:           uuid.NewString(),
		Kind:         kind,
		Message:      message,
		Timestamp:    time.Now(),
		SongTitle:    songTitle,
		PlaylistName: playlistName,
	}

	l.mu.Lock()
	l.entries = append([]model.Activity{entry}, l.entries...)
	l.mu.Unlock()
}

// Entries returns a copy of the log, newest first.
func (l *ActivityLog) Entries() []model.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Activity, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear empties the log.
func (l *ActivityLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
