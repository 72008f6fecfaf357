package client

import "sync"

// View names a top-level view of the application.
type View string

const (
	ViewHome       View = "home"
	ViewLibrary    View = "library"
	ViewBrowse     View = "browse"
	ViewSongDetail View = "song-detail"
	ViewPricing    View = "pricing"
)

// Navigator tracks the displayed view and a back-stack of previously visited
// views. History is singly linked; there is no forward stack.
type Navigator struct {
	mu    sync.Mutex
	stack []View

	// At most one filter is active at a time.
	artistFilter string
	genreFilter  string
}

// NewNavigator creates a navigator starting at the home view.
func NewNavigator() *Navigator {
	return &Navigator{stack: []View{ViewHome}}
}

// Current returns the displayed view.
func (n *Navigator) Current() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stack[len(n.stack)-1]
}

// Push navigates to a view. Pushing the currently displayed view again is a
// no-op, so the back-stack never holds consecutive duplicates.
func (n *Navigator) Push(view View) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stack[len(n.stack)-1] == view {
		return
	}
	n.stack = append(n.stack, view)
}

// CanGoBack reports whether there is history to pop.
func (n *Navigator) CanGoBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.stack) > 1
}

// GoBack pops one entry and restores the view beneath it. A no-op when only
// the initial view remains.
func (n *Navigator) GoBack() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.stack) <= 1 {
		return
	}
	n.stack = n.stack[:len(n.stack)-1]
}

// Depth returns the back-stack length.
func (n *Navigator) Depth() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.stack)
}

// SetArtistFilter activates an artist filter, clearing any genre filter.
func (n *Navigator) SetArtistFilter(artist string) {
	n.mu.Lock()
	n.artistFilter = artist
	n.genreFilter = ""
	n.mu.Unlock()
}

// SetGenreFilter activates a genre filter, clearing any artist filter.
func (n *Navigator) SetGenreFilter(genre string) {
	n.mu.Lock()
	n.genreFilter = genre
	n.artistFilter = ""
	n.mu.Unlock()
}

// ClearFilters deactivates both filters.
func (n *Navigator) ClearFilters() {
	n.mu.Lock()
	n.artistFilter = ""
	n.genreFilter = ""
	n.mu.Unlock()
}

// Filters returns the active artist and genre filters. At most one is
// non-empty.
func (n *Navigator) Filters() (artist, genre string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.artistFilter, n.genreFilter
}
