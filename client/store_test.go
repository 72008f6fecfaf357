package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"spookify/model"
)

// fakeBackend is an in-memory stand-in for the persistence endpoints,
// speaking the same routes and envelopes.
type fakeBackend struct {
	mu             sync.Mutex
	songs          []model.Song
	playlists      []model.Playlist
	members        map[int64][]int64 // playlist id -> song ids, insertion order
	nextPlaylistID int64

	songsFail          bool
	dropTransferInsert bool
	lastAuthHeader     string

	// When set, the first catalog request blocks on gate and then answers
	// with staleSongs instead of the live catalog.
	gate          chan struct{}
	gateEntered   chan struct{}
	staleSongs    []model.Song
	catalogServed int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		members:        make(map[int64][]int64),
		nextPlaylistID: 100,
	}
}

func (b *fakeBackend) addPlaylist(name string) model.Playlist {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextPlaylistID++
	p := model.Playlist{ID: b.nextPlaylistID, Name: name, UserID: 1}
	b.playlists = append(b.playlists, p)
	return p
}

func (b *fakeBackend) songByID(id int64) (model.Song, bool) {
	for _, s := range b.songs {
		if s.ID == id {
			return s, true
		}
	}
	return model.Song{}, false
}

func (b *fakeBackend) hasMember(playlistID, songID int64) bool {
	for _, id := range b.members[playlistID] {
		if id == songID {
			return true
		}
	}
	return false
}

func (b *fakeBackend) removeMember(playlistID, songID int64) {
	kept := b.members[playlistID][:0]
	for _, id := range b.members[playlistID] {
		if id != songID {
			kept = append(kept, id)
		}
	}
	b.members[playlistID] = kept
}

func writeTestJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/songs", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		if b.songsFail {
			b.mu.Unlock()
			writeTestJSON(w, http.StatusInternalServerError, map[string]string{"error": "database unavailable"})
			return
		}

		if raw := r.URL.Query().Get("playlist_id"); raw != "" {
			playlistID, _ := strconv.ParseInt(raw, 10, 64)
			out := make([]model.Song, 0)
			for _, id := range b.members[playlistID] {
				if s, ok := b.songByID(id); ok {
					out = append(out, s)
				}
			}
			b.mu.Unlock()
			writeTestJSON(w, http.StatusOK, out)
			return
		}

		b.catalogServed++
		first := b.catalogServed == 1
		gate := b.gate
		stale := b.staleSongs
		live := make([]model.Song, len(b.songs))
		copy(live, b.songs)
		b.mu.Unlock()

		if first && gate != nil {
			close(b.gateEntered)
			<-gate
			writeTestJSON(w, http.StatusOK, stale)
			return
		}
		writeTestJSON(w, http.StatusOK, live)
	})

	mux.HandleFunc("/api/playlists", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if r.Method == http.MethodPost {
			var body struct {
				Name   string `json:"name"`
				UserID int64  `json:"user_id"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			b.nextPlaylistID++
			p := model.Playlist{ID: b.nextPlaylistID, Name: body.Name, UserID: body.UserID}
			b.playlists = append(b.playlists, p)
			writeTestJSON(w, http.StatusOK, p)
			return
		}

		b.lastAuthHeader = r.Header.Get("Authorization")
		out := make([]model.Playlist, len(b.playlists))
		copy(out, b.playlists)
		for i := range out {
			out[i].SongCount = int64(len(b.members[out[i].ID]))
		}
		writeTestJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("/api/playlists/delete", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID int64 `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		kept := b.playlists[:0]
		for _, p := range b.playlists {
			if p.ID != body.ID {
				kept = append(kept, p)
			}
		}
		b.playlists = kept
		delete(b.members, body.ID)
		b.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	mux.HandleFunc("/api/playlists/rename", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		playlistID, _ := strconv.ParseInt(r.FormValue("playlist_id"), 10, 64)
		name := r.FormValue("name")

		b.mu.Lock()
		for i := range b.playlists {
			if b.playlists[i].ID == playlistID {
				b.playlists[i].Name = name
			}
		}
		b.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]interface{}{"success": true, "name": name})
	})

	mux.HandleFunc("/api/playlists/songs", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SongID     int64 `json:"song_id"`
			PlaylistID int64 `json:"playlist_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.hasMember(body.PlaylistID, body.SongID) {
			writeTestJSON(w, http.StatusConflict, map[string]string{"error": "Song already in playlist"})
			return
		}
		b.members[body.PlaylistID] = append(b.members[body.PlaylistID], body.SongID)
		writeTestJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	mux.HandleFunc("/api/playlists/songs/remove", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SongID     int64 `json:"song_id"`
			PlaylistID int64 `json:"playlist_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		b.removeMember(body.PlaylistID, body.SongID)
		b.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	mux.HandleFunc("/api/playlists/songs/transfer", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SongID         int64 `json:"song_id"`
			FromPlaylistID int64 `json:"from_playlist_id"`
			ToPlaylistID   int64 `json:"to_playlist_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		b.removeMember(body.FromPlaylistID, body.SongID)
		if !b.dropTransferInsert && !b.hasMember(body.ToPlaylistID, body.SongID) {
			b.members[body.ToPlaylistID] = append(b.members[body.ToPlaylistID], body.SongID)
		}
		b.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	mux.HandleFunc("/api/auth", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Action   string `json:"action"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		if body.Email == "ghost@spookify.local" && body.Password == "pumpkin" {
			writeTestJSON(w, http.StatusOK, map[string]interface{}{
				"status": "success",
				"user":   model.User{ID: 7, Username: "ghost", Email: body.Email, Role: model.RoleUser},
				"token":  "test-token",
			})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "error",
			"message": "Invalid credentials",
		})
	})

	return mux
}

func newTestStore(t *testing.T, b *fakeBackend) *Store {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	return NewStore(NewAPI(srv.URL), NewPlayer(&fakeOutput{}), nil)
}

func seedCatalog(b *fakeBackend) {
	b.songs = []model.Song{
		{ID: 1, Title: "Graveyard Smash", Artist: "Bobby Pickett", Genre: "rock"},
		{ID: 2, Title: "Monster Mash", Artist: "Bobby Pickett", Genre: "rock"},
		{ID: 3, Title: "Thriller", Artist: "Michael Jackson", Genre: "pop"},
	}
}

func TestLoadAllSongsFillsStoreAndQueue(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	s := newTestStore(t, b)

	if err := s.LoadAllSongs(context.Background()); err != nil {
		t.Fatalf("LoadAllSongs: %v", err)
	}
	if got := len(s.Songs()); got != 3 {
		t.Fatalf("songs = %d, want 3", got)
	}

	// The player queue mirrors the collection.
	songs := s.Songs()
	s.SetCurrentSong(&songs[0])
	s.PlayNext()
	if got := s.Player().Current().ID; got != 2 {
		t.Fatalf("queue advance gave song %d, want 2", got)
	}
}

func TestFetchFailureKeepsLastKnown(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	s := newTestStore(t, b)

	if err := s.LoadAllSongs(context.Background()); err != nil {
		t.Fatalf("LoadAllSongs: %v", err)
	}

	b.mu.Lock()
	b.songsFail = true
	b.mu.Unlock()

	err := s.LoadAllSongs(context.Background())
	if err == nil {
		t.Fatal("expected an error from the failing backend")
	}
	if got := len(s.Songs()); got != 3 {
		t.Fatalf("songs = %d after failed fetch, want last-known 3", got)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	b.gate = make(chan struct{})
	b.gateEntered = make(chan struct{})
	b.staleSongs = []model.Song{{ID: 99, Title: "Outdated"}}
	s := newTestStore(t, b)

	done := make(chan error, 1)
	go func() {
		done <- s.LoadAllSongs(context.Background())
	}()
	<-b.gateEntered

	// A second fetch starts later but completes first.
	if err := s.LoadAllSongs(context.Background()); err != nil {
		t.Fatalf("LoadAllSongs: %v", err)
	}
	close(b.gate)
	if err := <-done; err != nil {
		t.Fatalf("blocked LoadAllSongs: %v", err)
	}

	songs := s.Songs()
	if len(songs) != 3 || songs[0].ID == 99 {
		t.Fatalf("stale response overwrote the collection: %+v", songs)
	}
}

func TestSelectPlaylistLoadsMembers(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	p := b.addPlaylist("Halloween Hits")
	b.members[p.ID] = []int64{2, 3}
	s := newTestStore(t, b)

	if err := s.SelectPlaylist(context.Background(), &p); err != nil {
		t.Fatalf("SelectPlaylist: %v", err)
	}

	songs := s.Songs()
	if len(songs) != 2 || songs[0].ID != 2 || songs[1].ID != 3 {
		t.Fatalf("songs = %+v, want members 2 and 3", songs)
	}
	selected := s.SelectedPlaylist()
	if selected == nil || selected.SongCount != 2 || len(selected.Songs) != 2 {
		t.Fatalf("selected = %+v, want attached songs", selected)
	}

	// Deselecting reloads the full catalog.
	if err := s.SelectPlaylist(context.Background(), nil); err != nil {
		t.Fatalf("SelectPlaylist(nil): %v", err)
	}
	if got := len(s.Songs()); got != 3 {
		t.Fatalf("songs after deselect = %d, want 3", got)
	}
	if s.SelectedPlaylist() != nil {
		t.Fatal("selection should be cleared")
	}
}

func TestCreatePlaylistAppendsAndLogs(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	s := newTestStore(t, b)

	p, err := s.CreatePlaylist(context.Background(), "Halloween Hits")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if p.Name != "Halloween Hits" || p.ID == 0 {
		t.Fatalf("created playlist = %+v", p)
	}
	if got := len(s.Playlists()); got != 1 {
		t.Fatalf("playlists = %d, want 1", got)
	}

	entries := s.Activity().Entries()
	if len(entries) != 1 || entries[0].Kind != model.ActivityCreatePlaylist {
		t.Fatalf("activity = %+v", entries)
	}
	if !strings.Contains(entries[0].Message, "Halloween Hits") {
		t.Fatalf("activity message %q should name the playlist", entries[0].Message)
	}
}

func TestCreatePlaylistRejectsEmptyName(t *testing.T) {
	b := newFakeBackend()
	s := newTestStore(t, b)

	_, err := s.CreatePlaylist(context.Background(), "   ")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want a validation error", err)
	}
	if got := len(s.Playlists()); got != 0 {
		t.Fatalf("playlists = %d, want 0", got)
	}
}

func TestCreateThenDeleteLeavesNoTrace(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	s := newTestStore(t, b)

	before := len(s.Playlists())
	p, err := s.CreatePlaylist(context.Background(), "Ephemeral")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if err := s.AddSongToPlaylist(context.Background(), 1, p.ID); err != nil {
		t.Fatalf("AddSongToPlaylist: %v", err)
	}
	if err := s.DeletePlaylist(context.Background(), p.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}

	if got := len(s.Playlists()); got != before {
		t.Fatalf("playlists = %d, want %d", got, before)
	}
	b.mu.Lock()
	orphans := len(b.members[p.ID])
	b.mu.Unlock()
	if orphans != 0 {
		t.Fatalf("delete left %d membership rows behind", orphans)
	}
}

func TestDeleteSelectedPlaylistClearsSelection(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	p := b.addPlaylist("Doomed")
	b.members[p.ID] = []int64{1}
	s := newTestStore(t, b)

	if err := s.SelectPlaylist(context.Background(), &p); err != nil {
		t.Fatalf("SelectPlaylist: %v", err)
	}
	if err := s.DeletePlaylist(context.Background(), p.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}

	if s.SelectedPlaylist() != nil {
		t.Fatal("selection should be cleared after deleting the selected playlist")
	}
	if got := len(s.Songs()); got != 3 {
		t.Fatalf("songs = %d, want the full catalog back", got)
	}
}

func TestAddDuplicateSongConflicts(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	p := b.addPlaylist("Halloween Hits")
	s := newTestStore(t, b)

	if err := s.LoadAllSongs(context.Background()); err != nil {
		t.Fatalf("LoadAllSongs: %v", err)
	}
	if err := s.AddSongToPlaylist(context.Background(), 2, p.ID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := s.AddSongToPlaylist(context.Background(), 2, p.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("second add err = %v, want ErrConflict", err)
	}

	b.mu.Lock()
	count := len(b.members[p.ID])
	b.mu.Unlock()
	if count != 1 {
		t.Fatalf("membership rows = %d, want exactly 1", count)
	}

	// Only the successful add reaches the activity log.
	added := 0
	for _, e := range s.Activity().Entries() {
		if e.Kind == model.ActivityAddSong {
			added++
		}
	}
	if added != 1 {
		t.Fatalf("add activities = %d, want 1", added)
	}
}

func TestAddSongActivityNamesBoth(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	p := b.addPlaylist("Halloween Hits")
	s := newTestStore(t, b)

	if err := s.LoadAllSongs(context.Background()); err != nil {
		t.Fatalf("LoadAllSongs: %v", err)
	}
	if err := s.LoadPlaylists(context.Background()); err != nil {
		t.Fatalf("LoadPlaylists: %v", err)
	}
	if err := s.AddSongToPlaylist(context.Background(), 2, p.ID); err != nil {
		t.Fatalf("AddSongToPlaylist: %v", err)
	}

	entries := s.Activity().Entries()
	if len(entries) == 0 {
		t.Fatal("no activity recorded")
	}
	msg := entries[0].Message
	if !strings.Contains(msg, "Monster Mash") || !strings.Contains(msg, "Halloween Hits") {
		t.Fatalf("message %q should name the song and the playlist", msg)
	}
}

func TestRemoveSongDecrementsCount(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	p := b.addPlaylist("Halloween Hits")
	b.members[p.ID] = []int64{1, 2}
	s := newTestStore(t, b)

	if err := s.LoadPlaylists(context.Background()); err != nil {
		t.Fatalf("LoadPlaylists: %v", err)
	}
	if got := s.Playlists()[0].SongCount; got != 2 {
		t.Fatalf("song count = %d, want 2", got)
	}

	if err := s.RemoveSongFromPlaylist(context.Background(), 1, p.ID); err != nil {
		t.Fatalf("RemoveSongFromPlaylist: %v", err)
	}
	if got := s.Playlists()[0].SongCount; got != 1 {
		t.Fatalf("song count = %d, want optimistic 1", got)
	}
	b.mu.Lock()
	left := b.members[p.ID]
	b.mu.Unlock()
	if len(left) != 1 || left[0] != 2 {
		t.Fatalf("backend members = %v, want [2]", left)
	}
}

func TestTransferThereAndBackAgain(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	src := b.addPlaylist("Halloween Hits")
	dst := b.addPlaylist("Workout")
	b.members[src.ID] = []int64{2}
	s := newTestStore(t, b)

	if err := s.TransferSong(context.Background(), 2, src.ID, dst.ID); err != nil {
		t.Fatalf("transfer out: %v", err)
	}
	if err := s.TransferSong(context.Background(), 2, dst.ID, src.ID); err != nil {
		t.Fatalf("transfer back: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasMember(src.ID, 2) {
		t.Fatal("song should be back in the source playlist")
	}
	if b.hasMember(dst.ID, 2) {
		t.Fatal("song should have left the destination playlist")
	}
	if len(b.members[src.ID]) != 1 {
		t.Fatalf("source rows = %d, want 1", len(b.members[src.ID]))
	}
}

func TestTransferPartialDetected(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	src := b.addPlaylist("Halloween Hits")
	dst := b.addPlaylist("Workout")
	b.members[src.ID] = []int64{2}
	b.dropTransferInsert = true
	s := newTestStore(t, b)

	err := s.TransferSong(context.Background(), 2, src.ID, dst.ID)
	if !errors.Is(err, ErrPartialTransfer) {
		t.Fatalf("err = %v, want ErrPartialTransfer", err)
	}
}

func TestRenamePlaylistPatchesLocalCopy(t *testing.T) {
	b := newFakeBackend()
	p := b.addPlaylist("Untitled")
	s := newTestStore(t, b)

	if err := s.LoadPlaylists(context.Background()); err != nil {
		t.Fatalf("LoadPlaylists: %v", err)
	}
	if err := s.RenamePlaylist(context.Background(), p.ID, "Midnight Drive"); err != nil {
		t.Fatalf("RenamePlaylist: %v", err)
	}

	if got := s.Playlists()[0].Name; got != "Midnight Drive" {
		t.Fatalf("name = %q, want the confirmed rename", got)
	}
}

func TestLoginInstallsTokenAndReloadsPlaylists(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	b.addPlaylist("Halloween Hits")
	s := newTestStore(t, b)

	if err := s.Login(context.Background(), "ghost@spookify.local", "pumpkin"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user := s.User(); user == nil || user.ID != 7 {
		t.Fatalf("user = %+v, want id 7", user)
	}

	b.mu.Lock()
	header := b.lastAuthHeader
	b.mu.Unlock()
	if header != "Bearer test-token" {
		t.Fatalf("auth header = %q, want the issued bearer token", header)
	}
	if got := len(s.Playlists()); got != 1 {
		t.Fatalf("playlists = %d, want 1", got)
	}
}

func TestLoginRejectedIsGeneric(t *testing.T) {
	b := newFakeBackend()
	s := newTestStore(t, b)

	err := s.Login(context.Background(), "ghost@spookify.local", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if s.User() != nil {
		t.Fatal("failed login should not set a user")
	}
}

func TestLogoutClearsUser(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	s := newTestStore(t, b)

	if err := s.Login(context.Background(), "ghost@spookify.local", "pumpkin"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	s.Logout(context.Background())

	if s.User() != nil {
		t.Fatal("user should be nil after logout")
	}
	b.mu.Lock()
	header := b.lastAuthHeader
	b.mu.Unlock()
	if header != "" {
		t.Fatalf("auth header = %q, want none after logout", header)
	}
}

func TestSearchQueryFiltersByTitleAndArtist(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	s := newTestStore(t, b)
	if err := s.LoadAllSongs(context.Background()); err != nil {
		t.Fatalf("LoadAllSongs: %v", err)
	}

	s.SetSearchQuery("mash")
	got := s.FilteredSongs()
	if len(got) != 2 {
		t.Fatalf("filtered = %d songs, want the two Mash titles", len(got))
	}

	s.SetSearchQuery("jackson")
	got = s.FilteredSongs()
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("filtered = %+v, want Thriller via artist match", got)
	}

	s.SetSearchQuery("")
	if got := len(s.FilteredSongs()); got != 3 {
		t.Fatalf("filtered = %d, want the whole collection", got)
	}
}

func TestListenersHearPlaylistMutations(t *testing.T) {
	b := newFakeBackend()
	seedCatalog(b)
	s := newTestStore(t, b)

	var mu sync.Mutex
	var events []string
	s.AddListener(func(event string) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	})

	if _, err := s.CreatePlaylist(context.Background(), "Signals"); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0] != EventPlaylistsChanged {
		t.Fatalf("events = %v, want one playlists_changed", events)
	}
}
