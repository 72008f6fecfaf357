package repository

import (
	"database/sql"
	"fmt"

	"spookify/model"
)

// PlaylistRepository defines the interface for playlist data operations.
type PlaylistRepository interface {
	GetPlaylistsByUser(userID int64) ([]*model.Playlist, error)
	GetPlaylistByID(id int64) (*model.Playlist, error)
	CreatePlaylist(name string, userID int64) (*model.Playlist, error)
	DeletePlaylist(id int64) error
	RenamePlaylist(id int64, name string) error
	AddSong(songID, playlistID int64) error
	RemoveSong(songID, playlistID int64) error
	TransferSong(songID, fromPlaylistID, toPlaylistID int64) error
	MembershipExists(songID, playlistID int64) (bool, error)
}

// mysqlPlaylistRepository implements PlaylistRepository for MySQL.
type mysqlPlaylistRepository struct {
	db *sql.DB
}

// NewMySQLPlaylistRepository creates a new mysqlPlaylistRepository.
func NewMySQLPlaylistRepository(db *sql.DB) PlaylistRepository {
	return &mysqlPlaylistRepository{db: db}
}

// GetPlaylistsByUser retrieves a user's playlists with computed song counts.
func (r *mysqlPlaylistRepository) GetPlaylistsByUser(userID int64) ([]*model.Playlist, error) {
	query := `SELECT p.id, p.name, p.user_id, p.cover, COUNT(ps.song_id) AS song_count
	           FROM playlists p
	           LEFT JOIN playlist_songs ps ON p.id = ps.playlist_id
	           WHERE p.user_id = ?
	           GROUP BY p.id, p.name, p.user_id, p.cover`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists for user %d: %w", userID, err)
	}
	defer rows.Close()

	playlists := make([]*model.Playlist, 0)
	for rows.Next() {
		p := &model.Playlist{}
		var cover sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.UserID, &cover, &p.SongCount); err != nil {
			return nil, fmt.Errorf("failed to scan playlist in GetPlaylistsByUser: %w", err)
		}
		p.Cover = cover.String
		playlists = append(playlists, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetPlaylistsByUser: %w", err)
	}
	return playlists, nil
}

// GetPlaylistByID retrieves one playlist with its song count, or ErrNotFound.
func (r *mysqlPlaylistRepository) GetPlaylistByID(id int64) (*model.Playlist, error) {
	query := `SELECT p.id, p.name, p.user_id, p.cover, COUNT(ps.song_id) AS song_count
	           FROM playlists p
	           LEFT JOIN playlist_songs ps ON p.id = ps.playlist_id
	           WHERE p.id = ?
	           GROUP BY p.id, p.name, p.user_id, p.cover`
	p := &model.Playlist{}
	var cover sql.NullString
	err := r.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.UserID, &cover, &p.SongCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan playlist by ID %d: %w", id, err)
	}
	p.Cover = cover.String
	return p, nil
}

// CreatePlaylist inserts an empty playlist and returns it. Names are not
// deduplicated; two playlists may share a name.
func (r *mysqlPlaylistRepository) CreatePlaylist(name string, userID int64) (*model.Playlist, error) {
	stmt, err := r.db.Prepare("INSERT INTO playlists (name, user_id, created_at, updated_at) VALUES (?, ?, NOW(), NOW())")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create playlist statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(name, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute create playlist statement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID for playlist: %w", err)
	}

	return &model.Playlist{ID: id, Name: name, UserID: userID, SongCount: 0}, nil
}

// DeletePlaylist removes a playlist and all of its membership rows in one
// transaction, so no orphan membership survives.
func (r *mysqlPlaylistRepository) DeletePlaylist(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete playlist transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM playlist_songs WHERE playlist_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete playlist memberships for %d: %w", id, err)
	}

	res, err := tx.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to read affected rows for delete playlist: %w", err)
	}
	if affected == 0 {
		tx.Rollback()
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete playlist transaction: %w", err)
	}
	return nil
}

// RenamePlaylist updates a playlist's display name.
func (r *mysqlPlaylistRepository) RenamePlaylist(id int64, name string) error {
	stmt, err := r.db.Prepare("UPDATE playlists SET name = ?, updated_at = NOW() WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare rename playlist statement: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(name, id); err != nil {
		return fmt.Errorf("failed to execute rename playlist statement: %w", err)
	}
	return nil
}

// AddSong creates a membership row. Duplicate memberships are rejected with
// ErrDuplicateMembership, backed by the composite unique key.
func (r *mysqlPlaylistRepository) AddSong(songID, playlistID int64) error {
	stmt, err := r.db.Prepare("INSERT INTO playlist_songs (song_id, playlist_id, created_at) VALUES (?, ?, NOW())")
	if err != nil {
		return fmt.Errorf("failed to prepare add song statement: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(songID, playlistID); err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateMembership
		}
		return fmt.Errorf("failed to add song %d to playlist %d: %w", songID, playlistID, err)
	}
	return nil
}

// RemoveSong deletes a membership row. Removing a song that is not a member
// is not an error.
func (r *mysqlPlaylistRepository) RemoveSong(songID, playlistID int64) error {
	stmt, err := r.db.Prepare("DELETE FROM playlist_songs WHERE song_id = ? AND playlist_id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare remove song statement: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(songID, playlistID); err != nil {
		return fmt.Errorf("failed to remove song %d from playlist %d: %w", songID, playlistID, err)
	}
	return nil
}

// TransferSong moves a membership from one playlist to another atomically.
// The delete and the insert share one transaction, so a failed insert rolls
// the delete back and the song is never orphaned.
func (r *mysqlPlaylistRepository) TransferSong(songID, fromPlaylistID, toPlaylistID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transfer transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM playlist_songs WHERE song_id = ? AND playlist_id = ?", songID, fromPlaylistID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to remove song %d from playlist %d during transfer: %w", songID, fromPlaylistID, err)
	}

	if _, err := tx.Exec("INSERT INTO playlist_songs (song_id, playlist_id, created_at) VALUES (?, ?, NOW())", songID, toPlaylistID); err != nil {
		tx.Rollback()
		if isDuplicateEntry(err) {
			return ErrDuplicateMembership
		}
		return fmt.Errorf("failed to add song %d to playlist %d during transfer: %w", songID, toPlaylistID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer transaction: %w", err)
	}
	return nil
}

// MembershipExists reports whether a song is a member of a playlist.
func (r *mysqlPlaylistRepository) MembershipExists(songID, playlistID int64) (bool, error) {
	var id int64
	err := r.db.QueryRow("SELECT id FROM playlist_songs WHERE song_id = ? AND playlist_id = ?", songID, playlistID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check membership of song %d in playlist %d: %w", songID, playlistID, err)
	}
	return true, nil
}
