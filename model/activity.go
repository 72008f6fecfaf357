package model

import "time"

// ActivityKind classifies an activity log entry.
type ActivityKind string

const (
	ActivityAddSong        ActivityKind = "add_song"
	ActivityRemoveSong     ActivityKind = "remove_song"
	ActivityCreatePlaylist ActivityKind = "create_playlist"
	ActivityDeletePlaylist ActivityKind = "delete_playlist"
)

// Activity is one entry of the client-side audit trail. Entries live in
// memory only, newest first.
type Activity struct {
	ID           string       `json:"id"`
	Kind         ActivityKind `json:"type"`
	Message      string       `json:"message"`
	Timestamp    time.Time    `json:"timestamp"`
	SongTitle    string       `json:"songTitle,omitempty"`
	PlaylistName string       `json:"playlistName,omitempty"`
}
