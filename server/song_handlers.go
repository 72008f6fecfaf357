package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"spookify/cache"
	"spookify/logger"
	"spookify/model"
	"spookify/repository"
)

// genreLimit caps the response of the by-genre listing.
const genreLimit = 10

// GetSongsHandler lists the catalog, or a playlist's members when
// playlist_id is supplied.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, ok, err := optionalInt64Query(r, "playlist_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid playlist_id")
		return
	}

	var songs []*model.Song
	if ok {
		songs, err = h.songRepo.GetSongsByPlaylist(playlistID)
	} else {
		songs, err = h.songRepo.GetAllSongs()
	}
	if err != nil {
		logger.Error("[Songs] Failed to query songs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load songs")
		return
	}

	writeJSON(w, http.StatusOK, songs)
}

// GetSongsByGenreHandler lists up to ten songs of one genre.
func (h *APIHandler) GetSongsByGenreHandler(w http.ResponseWriter, r *http.Request) {
	genre := r.URL.Query().Get("genre")
	if genre == "" {
		writeError(w, http.StatusBadRequest, "Genre is required")
		return
	}

	songs, err := h.songRepo.GetSongsByGenre(genre, genreLimit)
	if err != nil {
		logger.Error("[Songs] Failed to query songs by genre",
			logger.String("genre", genre), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load songs")
		return
	}

	writeJSON(w, http.StatusOK, songs)
}

// GetGenresHandler lists the distinct genres, alphabetical. Redis-backed
// with a MySQL fallthrough.
func (h *APIHandler) GetGenresHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	genres, err := cache.GetGenres(ctx)
	if err != nil {
		logger.Warn("[Genres] Cache read failed", logger.ErrorField(err))
	}
	if genres == nil {
		genres, err = h.songRepo.GetGenres()
		if err != nil {
			logger.Error("[Genres] Failed to query genres", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Failed to load genres")
			return
		}
		if err := cache.SetGenres(ctx, genres); err != nil {
			logger.Warn("[Genres] Cache write failed", logger.ErrorField(err))
		}
	}

	writeJSON(w, http.StatusOK, genres)
}

// UpdateLyricsRequest is the lyrics mutation body.
type UpdateLyricsRequest struct {
	SongID int64  `json:"song_id"`
	Lyrics string `json:"lyrics"`
}

// UpdateLyricsHandler overwrites a song's lyrics. Admin only.
func (h *APIHandler) UpdateLyricsHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := ClaimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if claims.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "Admin role required")
		return
	}

	var req UpdateLyricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SongID == 0 || req.Lyrics == "" {
		writeError(w, http.StatusBadRequest, "Missing song_id or lyrics")
		return
	}

	if err := h.songRepo.UpdateLyrics(req.SongID, req.Lyrics); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Song not found")
			return
		}
		logger.Error("[Lyrics] Failed to update lyrics",
			logger.Int64("songId", req.SongID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update lyrics")
		return
	}

	logger.Info("[Lyrics] Lyrics updated",
		logger.Int64("songId", req.SongID), logger.String("by", claims.Username))

	if err := cache.InvalidateGenres(r.Context()); err != nil {
		logger.Warn("[Lyrics] Cache invalidation failed", logger.ErrorField(err))
	}
	h.hub.Broadcast(Event{Type: EventLyricsChanged, SongID: req.SongID})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Lyrics updated successfully",
	})
}
