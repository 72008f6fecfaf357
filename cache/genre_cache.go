package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const genresKey = "genres"

// genresTTL bounds staleness of the genre list between catalog mutations.
const genresTTL = 10 * time.Minute

// GetGenres returns the cached genre list, or (nil, nil) on a miss.
func GetGenres(ctx context.Context) ([]string, error) {
	if RedisClient == nil {
		return nil, nil
	}

	data, err := RedisClient.Get(ctx, genresKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get genres from cache: %w", err)
	}

	var genres []string
	if err := json.Unmarshal([]byte(data), &genres); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached genres: %w", err)
	}
	return genres, nil
}

// SetGenres stores the genre list.
func SetGenres(ctx context.Context, genres []string) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(genres)
	if err != nil {
		return fmt.Errorf("failed to marshal genres: %w", err)
	}
	if err := RedisClient.Set(ctx, genresKey, data, genresTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache genres: %w", err)
	}
	return nil
}

// InvalidateGenres drops the cached genre list.
func InvalidateGenres(ctx context.Context) error {
	if RedisClient == nil {
		return nil
	}
	if err := RedisClient.Del(ctx, genresKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate genres cache: %w", err)
	}
	return nil
}
