package repository

import (
	"database/sql"
	"fmt"

	"spookify/model"
)

// SongRepository defines the interface for song data operations.
type SongRepository interface {
	GetAllSongs() ([]*model.Song, error)
	GetSongsByPlaylist(playlistID int64) ([]*model.Song, error)
	GetSongsByGenre(genre string, limit int) ([]*model.Song, error)
	GetSongByID(id int64) (*model.Song, error)
	GetGenres() ([]string, error)
	UpdateLyrics(songID int64, lyrics string) error
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	db *sql.DB
}

// NewMySQLSongRepository creates a new mysqlSongRepository.
func NewMySQLSongRepository(db *sql.DB) SongRepository {
	return &mysqlSongRepository{db: db}
}

const songColumns = `s.id, s.title, s.artist_id, s.album_id, a.name, s.duration, s.cover, s.url, s.genre, s.lyrics`

func scanSong(scanner interface{ Scan(...interface{}) error }) (*model.Song, error) {
	song := &model.Song{}
	var genre, lyrics sql.NullString
	err := scanner.Scan(&song.ID, &song.Title, &song.ArtistID, &song.AlbumID, &song.Artist,
		&song.Duration, &song.Cover, &song.URL, &genre, &lyrics)
	if err != nil {
		return nil, err
	}
	song.Genre = genre.String
	song.Lyrics = lyrics.String
	return song, nil
}

// GetAllSongs retrieves the full catalog, artist names joined in.
func (r *mysqlSongRepository) GetAllSongs() ([]*model.Song, error) {
	query := `SELECT ` + songColumns + `
	           FROM songs s
	           JOIN artists a ON s.artist_id = a.id`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in GetAllSongs: %w", err)
		}
		songs = append(songs, song)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetAllSongs: %w", err)
	}
	return songs, nil
}

// GetSongsByPlaylist retrieves the songs that are members of a playlist, in
// insertion order.
func (r *mysqlSongRepository) GetSongsByPlaylist(playlistID int64) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + `
	           FROM songs s
	           JOIN playlist_songs ps ON s.id = ps.song_id
	           JOIN artists a ON s.artist_id = a.id
	           WHERE ps.playlist_id = ?
	           ORDER BY ps.id ASC`
	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for playlist %d: %w", playlistID, err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in GetSongsByPlaylist: %w", err)
		}
		songs = append(songs, song)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetSongsByPlaylist: %w", err)
	}
	return songs, nil
}

// GetSongsByGenre retrieves up to limit songs with the given genre.
func (r *mysqlSongRepository) GetSongsByGenre(genre string, limit int) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + `
	           FROM songs s
	           JOIN artists a ON s.artist_id = a.id
	           WHERE s.genre = ?
	           LIMIT ?`
	rows, err := r.db.Query(query, genre, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for genre %q: %w", genre, err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in GetSongsByGenre: %w", err)
		}
		songs = append(songs, song)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetSongsByGenre: %w", err)
	}
	return songs, nil
}

// GetSongByID retrieves one song, or ErrNotFound.
func (r *mysqlSongRepository) GetSongByID(id int64) (*model.Song, error) {
	query := `SELECT ` + songColumns + `
	           FROM songs s
	           JOIN artists a ON s.artist_id = a.id
	           WHERE s.id = ?`
	song, err := scanSong(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}
	return song, nil
}

// GetGenres retrieves the distinct non-empty genres, alphabetical.
func (r *mysqlSongRepository) GetGenres() ([]string, error) {
	query := `SELECT DISTINCT genre FROM songs
	           WHERE genre IS NOT NULL AND genre != ''
	           ORDER BY genre ASC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	genres := make([]string, 0)
	for rows.Next() {
		var genre string
		if err := rows.Scan(&genre); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, genre)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetGenres: %w", err)
	}
	return genres, nil
}

// UpdateLyrics overwrites the lyrics of a song.
func (r *mysqlSongRepository) UpdateLyrics(songID int64, lyrics string) error {
	stmt, err := r.db.Prepare("UPDATE songs SET lyrics = ?, updated_at = NOW() WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare update lyrics statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(lyrics, songID)
	if err != nil {
		return fmt.Errorf("failed to execute update lyrics statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for update lyrics: %w", err)
	}
	if affected == 0 {
		// Either the song does not exist or the lyrics are unchanged; probe
		// which one.
		var id int64
		if err := r.db.QueryRow("SELECT id FROM songs WHERE id = ?", songID).Scan(&id); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("failed to verify song %d exists: %w", songID, err)
		}
	}
	return nil
}
