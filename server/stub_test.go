package server

import (
	"spookify/model"
	"spookify/repository"
)

// stubSongRepo is an in-memory SongRepository for handler tests.
type stubSongRepo struct {
	songs      []*model.Song
	byPlaylist map[int64][]*model.Song
	genres     []string
	err        error
	lyricsErr  error
	lastGenre  string
	lastLimit  int
	lastLyrics map[int64]string
}

func (s *stubSongRepo) GetAllSongs() ([]*model.Song, error) {
	return s.songs, s.err
}

func (s *stubSongRepo) GetSongsByPlaylist(playlistID int64) ([]*model.Song, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.byPlaylist[playlistID]
	if out == nil {
		out = make([]*model.Song, 0)
	}
	return out, nil
}

func (s *stubSongRepo) GetSongsByGenre(genre string, limit int) ([]*model.Song, error) {
	s.lastGenre = genre
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*model.Song, 0)
	for _, song := range s.songs {
		if song.Genre == genre && len(out) < limit {
			out = append(out, song)
		}
	}
	return out, nil
}

func (s *stubSongRepo) GetSongByID(id int64) (*model.Song, error) {
	for _, song := range s.songs {
		if song.ID == id {
			return song, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubSongRepo) GetGenres() ([]string, error) {
	return s.genres, s.err
}

func (s *stubSongRepo) UpdateLyrics(songID int64, lyrics string) error {
	if s.lyricsErr != nil {
		return s.lyricsErr
	}
	if s.lastLyrics == nil {
		s.lastLyrics = make(map[int64]string)
	}
	s.lastLyrics[songID] = lyrics
	return nil
}

// stubPlaylistRepo is an in-memory PlaylistRepository for handler tests.
type stubPlaylistRepo struct {
	playlists   []*model.Playlist
	addErr      error
	deleteErr   error
	transferErr error

	added       []int64
	removed     []int64
	transferred []int64
	renamed     map[int64]string
}

func (s *stubPlaylistRepo) GetPlaylistsByUser(userID int64) ([]*model.Playlist, error) {
	out := make([]*model.Playlist, 0)
	for _, p := range s.playlists {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPlaylistRepo) GetPlaylistByID(id int64) (*model.Playlist, error) {
	for _, p := range s.playlists {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubPlaylistRepo) CreatePlaylist(name string, userID int64) (*model.Playlist, error) {
	p := &model.Playlist{ID: int64(len(s.playlists) + 1), Name: name, UserID: userID}
	s.playlists = append(s.playlists, p)
	return p, nil
}

func (s *stubPlaylistRepo) DeletePlaylist(id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	kept := s.playlists[:0]
	for _, p := range s.playlists {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.playlists = kept
	return nil
}

func (s *stubPlaylistRepo) RenamePlaylist(id int64, name string) error {
	if s.renamed == nil {
		s.renamed = make(map[int64]string)
	}
	s.renamed[id] = name
	return nil
}

func (s *stubPlaylistRepo) AddSong(songID, playlistID int64) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, songID, playlistID)
	return nil
}

func (s *stubPlaylistRepo) RemoveSong(songID, playlistID int64) error {
	s.removed = append(s.removed, songID, playlistID)
	return nil
}

func (s *stubPlaylistRepo) TransferSong(songID, fromPlaylistID, toPlaylistID int64) error {
	if s.transferErr != nil {
		return s.transferErr
	}
	s.transferred = append(s.transferred, songID, fromPlaylistID, toPlaylistID)
	return nil
}

func (s *stubPlaylistRepo) MembershipExists(songID, playlistID int64) (bool, error) {
	return false, nil
}

// stubUserRepo is an in-memory UserRepository for handler tests.
type stubUserRepo struct {
	users     map[string]*model.User // keyed by email
	createErr error
	created   []*model.User
	nextID    int64
}

func (s *stubUserRepo) CreateUser(user *model.User) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.nextID++
	s.created = append(s.created, user)
	if s.users == nil {
		s.users = make(map[string]*model.User)
	}
	s.users[user.Email] = user
	return s.nextID, nil
}

func (s *stubUserRepo) GetUserByID(id int64) (*model.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (s *stubUserRepo) GetUserByEmail(email string) (*model.User, error) {
	return s.users[email], nil
}

func newTestHandler(songs *stubSongRepo, playlists *stubPlaylistRepo, users *stubUserRepo) *APIHandler {
	if songs == nil {
		songs = &stubSongRepo{}
	}
	if playlists == nil {
		playlists = &stubPlaylistRepo{}
	}
	if users == nil {
		users = &stubUserRepo{}
	}
	return NewAPIHandler(songs, playlists, users, NewHub())
}
