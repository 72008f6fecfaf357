// Package client holds the Spookify client core: the API client, the
// library state store, the playback engine, the navigation stack and the
// activity log. Everything is an explicit, injectable object; no package
// globals.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"spookify/model"
)

// defaultTimeout bounds every persistence call so a dead server surfaces as
// a network error instead of a hang.
const defaultTimeout = 10 * time.Second

var (
	// ErrConflict signals a duplicate playlist membership.
	ErrConflict = errors.New("song already in playlist")

	// ErrEmailRegistered signals a duplicate registration email.
	ErrEmailRegistered = errors.New("email already registered")

	// ErrInvalidCredentials signals a failed login. Deliberately generic;
	// it carries no hint whether the email exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized signals a missing or rejected token.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError carries a server-side validation message that should be
// shown to the user, not retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// API is a typed client for the persistence endpoints.
type API struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
}

// NewAPI creates an API client for the given base URL.
func NewAPI(baseURL string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken sets the bearer token attached to subsequent requests. An empty
// token clears it.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *API) currentToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// do issues the request and decodes the response into out (when non-nil).
// Error-shaped responses are mapped onto the sentinel errors.
func (a *API) do(req *http.Request, out interface{}) error {
	if token := a.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		switch resp.StatusCode {
		case http.StatusConflict:
			return ErrConflict
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrUnauthorized
		case http.StatusBadRequest:
			return &ValidationError{Message: msg}
		default:
			return fmt.Errorf("server error: %s", msg)
		}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (a *API) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return a.do(req, out)
}

func (a *API) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *API) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, out)
}

// Songs fetches the full catalog.
func (a *API) Songs(ctx context.Context) ([]model.Song, error) {
	var songs []model.Song
	if err := a.getJSON(ctx, "/api/songs", &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// PlaylistSongs fetches the members of one playlist.
func (a *API) PlaylistSongs(ctx context.Context, playlistID int64) ([]model.Song, error) {
	var songs []model.Song
	path := "/api/songs?playlist_id=" + strconv.FormatInt(playlistID, 10)
	if err := a.getJSON(ctx, path, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// SongsByGenre fetches up to ten songs of one genre.
func (a *API) SongsByGenre(ctx context.Context, genre string) ([]model.Song, error) {
	var songs []model.Song
	path := "/api/songs/genre?genre=" + url.QueryEscape(genre)
	if err := a.getJSON(ctx, path, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// Genres fetches the distinct genre names.
func (a *API) Genres(ctx context.Context) ([]string, error) {
	var genres []string
	if err := a.getJSON(ctx, "/api/genres", &genres); err != nil {
		return nil, err
	}
	return genres, nil
}

// Playlists fetches a user's playlists with song counts.
func (a *API) Playlists(ctx context.Context, userID int64) ([]model.Playlist, error) {
	var playlists []model.Playlist
	path := "/api/playlists?user_id=" + strconv.FormatInt(userID, 10)
	if err := a.getJSON(ctx, path, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// CreatePlaylist creates an empty playlist and returns it.
func (a *API) CreatePlaylist(ctx context.Context, name string, userID int64) (model.Playlist, error) {
	var playlist model.Playlist
	body := map[string]interface{}{"name": name, "user_id": userID}
	if err := a.postJSON(ctx, "/api/playlists", body, &playlist); err != nil {
		return model.Playlist{}, err
	}
	return playlist, nil
}

// DeletePlaylist deletes a playlist. The server cascades membership rows.
func (a *API) DeletePlaylist(ctx context.Context, id int64) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := a.postJSON(ctx, "/api/playlists/delete", map[string]int64{"id": id}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("delete playlist %d not acknowledged", id)
	}
	return nil
}

// RenamePlaylist renames a playlist and returns the confirmed name. The
// endpoint takes form-encoded input but answers JSON.
func (a *API) RenamePlaylist(ctx context.Context, id int64, name string) (string, error) {
	form := url.Values{}
	form.Set("playlist_id", strconv.FormatInt(id, 10))
	form.Set("name", name)

	var resp struct {
		Success bool   `json:"success"`
		Name    string `json:"name"`
	}
	if err := a.postForm(ctx, "/api/playlists/rename", form, &resp); err != nil {
		return "", err
	}
	return resp.Name, nil
}

// AddSong adds a song to a playlist. Duplicate membership is ErrConflict.
func (a *API) AddSong(ctx context.Context, songID, playlistID int64) error {
	body := map[string]int64{"song_id": songID, "playlist_id": playlistID}
	return a.postJSON(ctx, "/api/playlists/songs", body, nil)
}

// RemoveSong removes a song from a playlist.
func (a *API) RemoveSong(ctx context.Context, songID, playlistID int64) error {
	body := map[string]int64{"song_id": songID, "playlist_id": playlistID}
	return a.postJSON(ctx, "/api/playlists/songs/remove", body, nil)
}

// TransferSong moves a song from one playlist to another.
func (a *API) TransferSong(ctx context.Context, songID, fromPlaylistID, toPlaylistID int64) error {
	body := map[string]int64{
		"song_id":          songID,
		"from_playlist_id": fromPlaylistID,
		"to_playlist_id":   toPlaylistID,
	}
	return a.postJSON(ctx, "/api/playlists/songs/transfer", body, nil)
}

// UpdateLyrics overwrites a song's lyrics. Requires an admin token.
func (a *API) UpdateLyrics(ctx context.Context, songID int64, lyrics string) error {
	body := map[string]interface{}{"song_id": songID, "lyrics": lyrics}
	return a.postJSON(ctx, "/api/songs/lyrics", body, nil)
}

// authEnvelope is the login/register response shape.
type authEnvelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	User    *model.User `json:"user"`
	Token   string      `json:"token"`
}

// Login authenticates and returns the user plus a bearer token. The token is
// also installed on the client.
func (a *API) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	body := map[string]string{"action": "login", "email": email, "password": password}
	var envelope authEnvelope
	if err := a.postJSON(ctx, "/api/auth", body, &envelope); err != nil {
		return nil, "", err
	}
	if envelope.Status != "success" {
		return nil, "", ErrInvalidCredentials
	}
	a.SetToken(envelope.Token)
	return envelope.User, envelope.Token, nil
}

// Register creates an account.
func (a *API) Register(ctx context.Context, username, email, password, role string) error {
	body := map[string]string{
		"action":   "register",
		"username": username,
		"email":    email,
		"password": password,
		"role":     role,
	}
	var envelope authEnvelope
	if err := a.postJSON(ctx, "/api/auth", body, &envelope); err != nil {
		return err
	}
	if envelope.Status != "success" {
		if strings.Contains(strings.ToLower(envelope.Message), "already registered") {
			return ErrEmailRegistered
		}
		return &ValidationError{Message: envelope.Message}
	}
	return nil
}
