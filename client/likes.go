package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"spookify/logger"

	"github.com/fsnotify/fsnotify"
)

// LikedStore holds the liked-song id set. The set lives on the local device
// only and is written synchronously on every toggle; it is never synced to
// the server. An fsnotify watcher picks up external edits of the file.
type LikedStore struct {
	mu      sync.Mutex
	path    string
	ids     map[int64]bool
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLikedStore loads the liked set from path (missing file means empty set)
// and starts watching the file's directory for external changes.
func NewLikedStore(path string) (*LikedStore, error) {
	s := &LikedStore{
		path: path,
		ids:  make(map[int64]bool),
		done: make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create liked store directory: %w", err)
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch liked store directory: %w", err)
	}
	s.watcher = watcher

	go s.watch()
	return s, nil
}

// Close stops the watcher.
func (s *LikedStore) Close() error {
	close(s.done)
	return s.watcher.Close()
}

func (s *LikedStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				s.mu.Lock()
				if err := s.load(); err != nil {
					logger.Warn("Failed to reload liked set", logger.ErrorField(err))
				}
				s.mu.Unlock()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Liked store watcher error", logger.ErrorField(err))
		}
	}
}

// load reads the file into the set. Caller holds the lock (or is the
// constructor).
func (s *LikedStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.ids = make(map[int64]bool)
			return nil
		}
		return fmt.Errorf("failed to read liked store: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("failed to parse liked store: %w", err)
	}

	s.ids = make(map[int64]bool, len(ids))
	for _, id := range ids {
		s.ids[id] = true
	}
	return nil
}

// save writes the whole set. Caller holds the lock.
func (s *LikedStore) save() error {
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal liked set: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write liked store: %w", err)
	}
	return nil
}

// Toggle flips membership of a song id and persists the set synchronously.
func (s *LikedStore) Toggle(songID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[songID] {
		delete(s.ids, songID)
	} else {
		s.ids[songID] = true
	}
	return s.save()
}

// Liked reports whether a song id is in the set.
func (s *LikedStore) Liked(songID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[songID]
}

// IDs returns the liked ids, ascending.
func (s *LikedStore) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Prune drops every liked id that no longer names a known song, persisting
// only when something changed. Called whenever the song collection changes.
func (s *LikedStore) Prune(known map[int64]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for id := range s.ids {
		if !known[id] {
			delete(s.ids, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save()
}
