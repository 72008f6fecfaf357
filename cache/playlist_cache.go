package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"spookify/model"

	"github.com/go-redis/redis/v8"
)

// playlistsTTL bounds staleness between mutations that miss an invalidation.
const playlistsTTL = 5 * time.Minute

// playlistsKey builds the Redis key for a user's playlist collection.
func playlistsKey(userID int64) string {
	return fmt.Sprintf("playlists:user:%d", userID)
}

// GetUserPlaylists returns the cached playlist collection for a user, with
// song counts, or (nil, nil) on a miss.
func GetUserPlaylists(ctx context.Context, userID int64) ([]*model.Playlist, error) {
	if RedisClient == nil {
		return nil, nil
	}

	data, err := RedisClient.Get(ctx, playlistsKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlists from cache: %w", err)
	}

	var playlists []*model.Playlist
	if err := json.Unmarshal([]byte(data), &playlists); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached playlists: %w", err)
	}
	return playlists, nil
}

// SetUserPlaylists stores a user's playlist collection.
func SetUserPlaylists(ctx context.Context, userID int64, playlists []*model.Playlist) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(playlists)
	if err != nil {
		return fmt.Errorf("failed to marshal playlists: %w", err)
	}
	if err := RedisClient.Set(ctx, playlistsKey(userID), data, playlistsTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache playlists: %w", err)
	}
	return nil
}

// InvalidateUserPlaylists drops a user's cached playlist collection. Called
// after every playlist or membership mutation.
func InvalidateUserPlaylists(ctx context.Context, userID int64) error {
	if RedisClient == nil {
		return nil
	}
	if err := RedisClient.Del(ctx, playlistsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate playlists cache: %w", err)
	}
	return nil
}
