package model

import "time"

// Song represents a track in the catalog. The artist name is resolved by a
// join against the artists table and is not a column of its own.
type Song struct {
	ID       int64   `json:"id" gorm:"primaryKey"`
	Title    string  `json:"title" gorm:"size:255;not null"`
	ArtistID int64   `json:"artist_id" gorm:"index"`
	AlbumID  int64   `json:"album_id"`
	Artist   string  `json:"artist" gorm:"-"`
	Duration float64 `json:"duration"`
	Cover    string  `json:"cover" gorm:"size:767"`
	URL      string  `json:"url" gorm:"size:767"`
	Genre    string  `json:"genre,omitempty" gorm:"size:100;index"`
	Lyrics   string  `json:"lyrics,omitempty" gorm:"type:longtext"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Artist is a catalog artist.
type Artist struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:255;not null"`
}
