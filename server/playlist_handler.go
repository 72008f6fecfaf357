package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"spookify/cache"
	"spookify/logger"
	"spookify/repository"
)

// fallbackUserID is used by the playlist listing when no user_id is given,
// matching the fixed contract.
const fallbackUserID = 1

// optionalInt64Query parses an optional integer query parameter.
func optionalInt64Query(r *http.Request, name string) (int64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// GetPlaylistsHandler lists a user's playlists with song counts.
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok, err := optionalInt64Query(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user_id")
		return
	}
	if !ok {
		userID = fallbackUserID
	}

	playlists, err := cache.GetUserPlaylists(ctx, userID)
	if err != nil {
		logger.Warn("[Playlists] Cache read failed", logger.ErrorField(err))
	}
	if playlists == nil {
		playlists, err = h.playlistRepo.GetPlaylistsByUser(userID)
		if err != nil {
			logger.Error("[Playlists] Failed to query playlists",
				logger.Int64("userId", userID), logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Failed to load playlists")
			return
		}
		if err := cache.SetUserPlaylists(ctx, userID, playlists); err != nil {
			logger.Warn("[Playlists] Cache write failed", logger.ErrorField(err))
		}
	}

	writeJSON(w, http.StatusOK, playlists)
}

// CreatePlaylistRequest is the create mutation body.
type CreatePlaylistRequest struct {
	Name   string `json:"name"`
	UserID int64  `json:"user_id"`
}

// CreatePlaylistHandler creates an empty playlist and returns it.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Playlist name is required")
		return
	}
	if req.UserID == 0 {
		req.UserID = fallbackUserID
	}

	playlist, err := h.playlistRepo.CreatePlaylist(req.Name, req.UserID)
	if err != nil {
		logger.Error("[Playlists] Failed to create playlist", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create playlist")
		return
	}

	h.invalidatePlaylists(r, req.UserID)
	h.hub.Broadcast(Event{Type: EventPlaylistsChanged, PlaylistID: playlist.ID})

	writeJSON(w, http.StatusOK, playlist)
}

// DeletePlaylistRequest is the delete mutation body.
type DeletePlaylistRequest struct {
	ID int64 `json:"id"`
}

// DeletePlaylistHandler deletes a playlist and its membership rows.
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req DeletePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == 0 {
		writeError(w, http.StatusBadRequest, "Missing playlist id")
		return
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(req.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Error("[Playlists] Failed to load playlist before delete", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete playlist")
		return
	}

	if err := h.playlistRepo.DeletePlaylist(req.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		logger.Error("[Playlists] Failed to delete playlist",
			logger.Int64("playlistId", req.ID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete playlist")
		return
	}

	if playlist != nil {
		h.invalidatePlaylists(r, playlist.UserID)
	}
	h.hub.Broadcast(Event{Type: EventPlaylistsChanged, PlaylistID: req.ID})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RenamePlaylistHandler renames a playlist. Form-encoded input, JSON output.
func (h *APIHandler) RenamePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	playlistID, err := strconv.ParseInt(r.PostFormValue("playlist_id"), 10, 64)
	name := r.PostFormValue("name")
	if err != nil || playlistID == 0 || name == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if err := h.playlistRepo.RenamePlaylist(playlistID, name); err != nil {
		logger.Error("[Playlists] Failed to rename playlist",
			logger.Int64("playlistId", playlistID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update playlist")
		return
	}

	h.invalidatePlaylistOwner(r, playlistID)
	h.hub.Broadcast(Event{Type: EventPlaylistsChanged, PlaylistID: playlistID})

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "name": name})
}

// MembershipRequest is the add/remove mutation body.
type MembershipRequest struct {
	SongID     int64 `json:"song_id"`
	PlaylistID int64 `json:"playlist_id"`
}

// AddSongHandler adds a song to a playlist. Duplicate membership is a 409.
func (h *APIHandler) AddSongHandler(w http.ResponseWriter, r *http.Request) {
	var req MembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SongID == 0 || req.PlaylistID == 0 {
		writeError(w, http.StatusBadRequest, "Missing song_id or playlist_id")
		return
	}

	if err := h.playlistRepo.AddSong(req.SongID, req.PlaylistID); err != nil {
		if errors.Is(err, repository.ErrDuplicateMembership) {
			writeError(w, http.StatusConflict, "Song already in playlist")
			return
		}
		logger.Error("[Playlists] Failed to add song",
			logger.Int64("songId", req.SongID),
			logger.Int64("playlistId", req.PlaylistID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to add song")
		return
	}

	h.invalidatePlaylistOwner(r, req.PlaylistID)
	h.hub.Broadcast(Event{Type: EventPlaylistsChanged, PlaylistID: req.PlaylistID})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RemoveSongHandler removes a song from a playlist.
func (h *APIHandler) RemoveSongHandler(w http.ResponseWriter, r *http.Request) {
	var req MembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SongID == 0 || req.PlaylistID == 0 {
		writeError(w, http.StatusBadRequest, "Missing song_id or playlist_id")
		return
	}

	if err := h.playlistRepo.RemoveSong(req.SongID, req.PlaylistID); err != nil {
		logger.Error("[Playlists] Failed to remove song",
			logger.Int64("songId", req.SongID),
			logger.Int64("playlistId", req.PlaylistID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to remove song")
		return
	}

	h.invalidatePlaylistOwner(r, req.PlaylistID)
	h.hub.Broadcast(Event{Type: EventPlaylistsChanged, PlaylistID: req.PlaylistID})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TransferRequest is the transfer mutation body.
type TransferRequest struct {
	SongID         int64 `json:"song_id"`
	FromPlaylistID int64 `json:"from_playlist_id"`
	ToPlaylistID   int64 `json:"to_playlist_id"`
}

// TransferSongHandler moves a song between playlists atomically.
func (h *APIHandler) TransferSongHandler(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SongID == 0 || req.FromPlaylistID == 0 || req.ToPlaylistID == 0 {
		writeError(w, http.StatusBadRequest, "Missing song_id, from_playlist_id or to_playlist_id")
		return
	}

	if err := h.playlistRepo.TransferSong(req.SongID, req.FromPlaylistID, req.ToPlaylistID); err != nil {
		if errors.Is(err, repository.ErrDuplicateMembership) {
			writeError(w, http.StatusConflict, "Song already in playlist")
			return
		}
		logger.Error("[Playlists] Failed to transfer song",
			logger.Int64("songId", req.SongID),
			logger.Int64("fromPlaylistId", req.FromPlaylistID),
			logger.Int64("toPlaylistId", req.ToPlaylistID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to transfer song")
		return
	}

	h.invalidatePlaylistOwner(r, req.FromPlaylistID)
	h.invalidatePlaylistOwner(r, req.ToPlaylistID)
	h.hub.Broadcast(Event{Type: EventPlaylistsChanged, PlaylistID: req.ToPlaylistID})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// invalidatePlaylists drops a user's cached playlist collection.
func (h *APIHandler) invalidatePlaylists(r *http.Request, userID int64) {
	if err := cache.InvalidateUserPlaylists(r.Context(), userID); err != nil {
		logger.Warn("[Playlists] Cache invalidation failed",
			logger.Int64("userId", userID), logger.ErrorField(err))
	}
}

// invalidatePlaylistOwner resolves a playlist's owner and drops the owner's
// cached collection. Best effort.
func (h *APIHandler) invalidatePlaylistOwner(r *http.Request, playlistID int64) {
	playlist, err := h.playlistRepo.GetPlaylistByID(playlistID)
	if err != nil || playlist == nil {
		return
	}
	h.invalidatePlaylists(r, playlist.UserID)
}
