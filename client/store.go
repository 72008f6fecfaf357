package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"spookify/logger"
	"spookify/model"
)

// ErrPartialTransfer signals that a transfer's delete succeeded but its
// insert did not, leaving the song in neither playlist.
var ErrPartialTransfer = errors.New("partial transfer: song left both playlists")

// fallbackUserID mirrors the persistence endpoints' fixed fallback when no
// user is logged in.
const fallbackUserID = 1

// EventPlaylistsChanged is broadcast to listeners whenever the playlist
// collection mutates, so components holding copies can refetch.
const EventPlaylistsChanged = "playlists_changed"

// Store is the authoritative in-process snapshot of songs, playlists and the
// logged-in user. Every mutation calls a persistence endpoint and then
// reconciles local state, either by merging the returned object or by
// refetching the affected collection. The store is not transactional;
// concurrent mutations race and the last refetch to land wins, but
// generation counters guarantee a stale fetch can never overwrite a fresher
// one.
type Store struct {
	mu sync.Mutex

	api      *API
	player   *Player
	activity *ActivityLog
	likes    *LikedStore

	songs       []model.Song
	playlists   []model.Playlist
	selected    *model.Playlist
	user        *model.User
	searchQuery string

	// Generation counters per fetch family; responses carrying a stale
	// generation are discarded.
	songsGen     uint64
	playlistsGen uint64

	listeners []func(event string)
}

// NewStore creates a store over the given collaborators. likes may be nil
// when no local device storage is available.
func NewStore(api *API, player *Player, likes *LikedStore) *Store {
	return &Store{
		api:      api,
		player:   player,
		activity: NewActivityLog(),
		likes:    likes,
	}
}

// AddListener registers a callback invoked after state-changing broadcasts,
// e.g. "playlists_changed". Callbacks run outside the store lock.
func (s *Store) AddListener(fn func(event string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify(event string) {
	s.mu.Lock()
	listeners := make([]func(string), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(event)
	}
}

// applySongsLocked replaces the song collection, mirrors it into the player
// queue and prunes the liked set against the new ids.
func (s *Store) applySongsLocked(songs []model.Song) {
	s.songs = songs
	s.player.SetQueue(songs)

	if s.likes != nil {
		known := make(map[int64]bool, len(songs))
		for _, song := range songs {
			known[song.ID] = true
		}
		if err := s.likes.Prune(known); err != nil {
			logger.Warn("Failed to prune liked set", logger.ErrorField(err))
		}
	}
}

// LoadAllSongs fetches the full catalog and replaces the song collection.
// On failure the collection keeps its last-known value and the error is
// returned; a response that lost the race to a newer fetch is discarded.
func (s *Store) LoadAllSongs(ctx context.Context) error {
	s.mu.Lock()
	s.songsGen++
	gen := s.songsGen
	s.mu.Unlock()

	songs, err := s.api.Songs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load songs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.songsGen {
		return nil
	}
	s.applySongsLocked(songs)
	return nil
}

// loadPlaylistSongs fetches a playlist's members, replaces the song
// collection with that subset and attaches it to the selected playlist.
func (s *Store) loadPlaylistSongs(ctx context.Context, playlistID int64) error {
	s.mu.Lock()
	s.songsGen++
	gen := s.songsGen
	s.mu.Unlock()

	songs, err := s.api.PlaylistSongs(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("failed to load playlist songs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.songsGen {
		return nil
	}
	s.applySongsLocked(songs)
	if s.selected != nil && s.selected.ID == playlistID {
		s.selected.Songs = songs
		s.selected.SongCount = int64(len(songs))
	}
	return nil
}

// SelectPlaylist sets the active selection. Selecting a playlist is the sole
// trigger for loading its members; selecting nil is the sole trigger for
// reloading the full catalog. Selection and song-collection identity are
// never independent.
func (s *Store) SelectPlaylist(ctx context.Context, playlist *model.Playlist) error {
	if playlist == nil {
		s.mu.Lock()
		s.selected = nil
		s.mu.Unlock()
		return s.LoadAllSongs(ctx)
	}

	s.mu.Lock()
	cp := *playlist
	s.selected = &cp
	s.mu.Unlock()
	return s.loadPlaylistSongs(ctx, playlist.ID)
}

// refreshPlaylists refetches the playlist collection, e.g. to refresh song
// counts after a membership mutation.
func (s *Store) refreshPlaylists(ctx context.Context) error {
	s.mu.Lock()
	s.playlistsGen++
	gen := s.playlistsGen
	userID := s.userIDLocked()
	s.mu.Unlock()

	playlists, err := s.api.Playlists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.playlistsGen {
		return nil
	}
	s.playlists = playlists
	return nil
}

// LoadPlaylists is the public entry for fetching the playlist collection.
func (s *Store) LoadPlaylists(ctx context.Context) error {
	return s.refreshPlaylists(ctx)
}

// CreatePlaylist creates a playlist and appends it locally. Names are not
// deduplicated; two playlists may share one.
func (s *Store) CreatePlaylist(ctx context.Context, name string) (*model.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Message: "Playlist name is required"}
	}

	s.mu.Lock()
	userID := s.userIDLocked()
	s.mu.Unlock()

	playlist, err := s.api.CreatePlaylist(ctx, name, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.playlists = append(s.playlists, playlist)
	s.mu.Unlock()

	s.activity.Add(model.ActivityCreatePlaylist,
		fmt.Sprintf("Created playlist %q", playlist.Name), "", playlist.Name)
	s.notify(EventPlaylistsChanged)
	return &playlist, nil
}

// DeletePlaylist deletes a playlist, removes it locally, clears the
// selection if it was the deleted one and broadcasts a change signal for any
// component holding a stale copy.
func (s *Store) DeletePlaylist(ctx context.Context, id int64) error {
	if err := s.api.DeletePlaylist(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	var name string
	kept := s.playlists[:0]
	for _, p := range s.playlists {
		if p.ID == id {
			name = p.Name
			continue
		}
		kept = append(kept, p)
	}
	s.playlists = kept
	deselected := s.selected != nil && s.selected.ID == id
	if deselected {
		s.selected = nil
	}
	s.mu.Unlock()

	message := "Deleted a playlist"
	if name != "" {
		message = fmt.Sprintf("Deleted playlist %q", name)
	}
	s.activity.Add(model.ActivityDeletePlaylist, message, "", name)
	s.notify(EventPlaylistsChanged)

	if deselected {
		if err := s.LoadAllSongs(ctx); err != nil {
			logger.Warn("Failed to reload catalog after playlist delete", logger.ErrorField(err))
		}
	}
	return nil
}

// RenamePlaylist renames a playlist and patches the local copy with the
// confirmed name.
func (s *Store) RenamePlaylist(ctx context.Context, id int64, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Message: "Playlist name is required"}
	}

	confirmed, err := s.api.RenamePlaylist(ctx, id, name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.playlists {
		if s.playlists[i].ID == id {
			s.playlists[i].Name = confirmed
		}
	}
	if s.selected != nil && s.selected.ID == id {
		s.selected.Name = confirmed
	}
	s.mu.Unlock()

	s.notify(EventPlaylistsChanged)
	return nil
}

// AddSongToPlaylist adds a membership. The endpoint rejects duplicates with
// a conflict, surfaced unchanged. On success the playlist collection is
// refetched for fresh counts and, if the target is selected, so is its song
// list.
func (s *Store) AddSongToPlaylist(ctx context.Context, songID, playlistID int64) error {
	if err := s.api.AddSong(ctx, songID, playlistID); err != nil {
		return err
	}

	if err := s.refreshPlaylists(ctx); err != nil {
		logger.Warn("Failed to refresh playlists after add", logger.ErrorField(err))
	}
	if s.isSelected(playlistID) {
		if err := s.loadPlaylistSongs(ctx, playlistID); err != nil {
			logger.Warn("Failed to refresh playlist songs after add", logger.ErrorField(err))
		}
	}

	title, name := s.lookupNames(songID, playlistID)
	message := "Added a song to a playlist"
	if title != "" && name != "" {
		message = fmt.Sprintf("Added %q to %q", title, name)
	}
	s.activity.Add(model.ActivityAddSong, message, title, name)
	s.notify(EventPlaylistsChanged)
	return nil
}

// RemoveSongFromPlaylist removes a membership, decrements the cached song
// count optimistically and refetches the song list if that playlist is
// selected.
func (s *Store) RemoveSongFromPlaylist(ctx context.Context, songID, playlistID int64) error {
	if err := s.api.RemoveSong(ctx, songID, playlistID); err != nil {
		return err
	}

	title, name := s.lookupNames(songID, playlistID)

	s.mu.Lock()
	for i := range s.playlists {
		if s.playlists[i].ID == playlistID && s.playlists[i].SongCount > 0 {
			s.playlists[i].SongCount--
		}
	}
	s.mu.Unlock()

	if s.isSelected(playlistID) {
		if err := s.loadPlaylistSongs(ctx, playlistID); err != nil {
			logger.Warn("Failed to refresh playlist songs after remove", logger.ErrorField(err))
		}
	}

	message := "Removed a song from a playlist"
	if title != "" && name != "" {
		message = fmt.Sprintf("Removed %q from %q", title, name)
	}
	s.activity.Add(model.ActivityRemoveSong, message, title, name)
	s.notify(EventPlaylistsChanged)
	return nil
}

// TransferSong moves a song between playlists as one logical operation. On
// success the playlist collection is refetched, plus the source's song list
// if selected. Membership is then re-verified: a song found in neither
// playlist means the server's delete landed but its insert did not, which is
// reported as ErrPartialTransfer rather than silent success.
func (s *Store) TransferSong(ctx context.Context, songID, fromPlaylistID, toPlaylistID int64) error {
	if err := s.api.TransferSong(ctx, songID, fromPlaylistID, toPlaylistID); err != nil {
		return err
	}

	if err := s.refreshPlaylists(ctx); err != nil {
		logger.Warn("Failed to refresh playlists after transfer", logger.ErrorField(err))
	}
	if s.isSelected(fromPlaylistID) {
		if err := s.loadPlaylistSongs(ctx, fromPlaylistID); err != nil {
			logger.Warn("Failed to refresh playlist songs after transfer", logger.ErrorField(err))
		}
	}
	s.notify(EventPlaylistsChanged)

	// Verification fetches only; they never touch the collections.
	dst, err := s.api.PlaylistSongs(ctx, toPlaylistID)
	if err != nil {
		return nil
	}
	if containsSong(dst, songID) {
		return nil
	}
	src, err := s.api.PlaylistSongs(ctx, fromPlaylistID)
	if err != nil {
		return nil
	}
	if !containsSong(src, songID) {
		return ErrPartialTransfer
	}
	return nil
}

func containsSong(songs []model.Song, id int64) bool {
	for _, s := range songs {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Login authenticates, installs the session token and reloads the user's
// playlists.
func (s *Store) Login(ctx context.Context, email, password string) error {
	user, _, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	if err := s.refreshPlaylists(ctx); err != nil {
		logger.Warn("Failed to load playlists after login", logger.ErrorField(err))
	}
	return nil
}

// Register creates an account. It does not log in.
func (s *Store) Register(ctx context.Context, username, email, password, role string) error {
	return s.api.Register(ctx, username, email, password, role)
}

// Logout drops the in-memory session. There is nothing to revoke server
// side.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.api.SetToken("")

	if err := s.refreshPlaylists(ctx); err != nil {
		logger.Warn("Failed to reload playlists after logout", logger.ErrorField(err))
	}
}

// UpdateLyrics overwrites a song's lyrics (admin only) and patches the local
// copy.
func (s *Store) UpdateLyrics(ctx context.Context, songID int64, lyrics string) error {
	if strings.TrimSpace(lyrics) == "" {
		return &ValidationError{Message: "Lyrics are required"}
	}
	if err := s.api.UpdateLyrics(ctx, songID, lyrics); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.songs {
		if s.songs[i].ID == songID {
			s.songs[i].Lyrics = lyrics
		}
	}
	s.mu.Unlock()
	return nil
}

// Playback passthroughs. These are pure local mutators whose side effect is
// driving the playback engine.

func (s *Store) SetCurrentSong(song *model.Song) { s.player.SetCurrent(song) }
func (s *Store) SetPlaying(playing bool)         { s.player.SetPlaying(playing) }
func (s *Store) SetVolume(v int)                 { s.player.SetVolume(v) }
func (s *Store) Seek(seconds float64)            { s.player.Seek(seconds) }
func (s *Store) PlayNext()                       { s.player.PlayNext() }
func (s *Store) PlayPrevious()                   { s.player.PlayPrevious() }
func (s *Store) ToggleLoopMode() LoopMode        { return s.player.ToggleLoop() }

// ToggleLiked flips a song's membership in the liked set, persisting it to
// local device storage synchronously.
func (s *Store) ToggleLiked(songID int64) error {
	if s.likes == nil {
		return nil
	}
	return s.likes.Toggle(songID)
}

// Liked reports whether a song is in the liked set.
func (s *Store) Liked(songID int64) bool {
	return s.likes != nil && s.likes.Liked(songID)
}

// SetSearchQuery records the search query.
func (s *Store) SetSearchQuery(query string) {
	s.mu.Lock()
	s.searchQuery = query
	s.mu.Unlock()
}

// SearchQuery returns the search query.
func (s *Store) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchQuery
}

// FilteredSongs returns the songs matching the search query by title or
// artist, or the whole collection when the query is empty.
func (s *Store) FilteredSongs() []model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(s.searchQuery))
	if query == "" {
		out := make([]model.Song, len(s.songs))
		copy(out, s.songs)
		return out
	}

	out := make([]model.Song, 0)
	for _, song := range s.songs {
		if strings.Contains(strings.ToLower(song.Title), query) ||
			strings.Contains(strings.ToLower(song.Artist), query) {
			out = append(out, song)
		}
	}
	return out
}

// Songs returns a copy of the song collection.
func (s *Store) Songs() []model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Song, len(s.songs))
	copy(out, s.songs)
	return out
}

// Playlists returns a copy of the playlist collection.
func (s *Store) Playlists() []model.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Playlist, len(s.playlists))
	copy(out, s.playlists)
	return out
}

// SelectedPlaylist returns the active selection, or nil.
func (s *Store) SelectedPlaylist() *model.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	cp := *s.selected
	return &cp
}

// User returns the logged-in user, or nil.
func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Activity returns the activity log.
func (s *Store) Activity() *ActivityLog {
	return s.activity
}

// Player returns the playback engine.
func (s *Store) Player() *Player {
	return s.player
}

func (s *Store) isSelected(playlistID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected != nil && s.selected.ID == playlistID
}

func (s *Store) lookupNames(songID, playlistID int64) (title, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, song := range s.songs {
		if song.ID == songID {
			title = song.Title
			break
		}
	}
	for _, p := range s.playlists {
		if p.ID == playlistID {
			name = p.Name
			break
		}
	}
	return title, name
}

func (s *Store) userIDLocked() int64 {
	if s.user != nil {
		return s.user.ID
	}
	return fallbackUserID
}
