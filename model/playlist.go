package model

import "time"

// Playlist is a user-owned, insertion-ordered collection of songs. SongCount
// is computed from memberships; Songs is populated lazily, only when the
// playlist is the active selection.
type Playlist struct {
	ID     int64  `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"size:255;not null"`
	UserID int64  `json:"user_id" gorm:"index"`
	Cover  string `json:"cover,omitempty" gorm:"size:767"`

	SongCount int64  `json:"song_count" gorm:"-"`
	Songs     []Song `json:"songs,omitempty" gorm:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// PlaylistSong relates one song to one playlist. The composite unique index
// enforces that a song appears in a playlist at most once.
type PlaylistSong struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	SongID     int64     `json:"song_id" gorm:"uniqueIndex:uq_song_playlist"`
	PlaylistID int64     `json:"playlist_id" gorm:"uniqueIndex:uq_song_playlist"`
	CreatedAt  time.Time `json:"-"`
}
