package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

const (
	// videoCacheKeyPrefix is the prefix for video cache keys in Redis.
	videoCacheKeyPrefix = "video:"
)

// videoJSON is the JSON representation of a Video for caching. Using an
// explicit struct avoids coupling to the domain model's JSON tags.
type videoJSON struct {
	ID                   int64   `json:"id"`
	PublicID             string  `json:"public_id"`
	OwnerID              int64   `json:"owner_id"`
	OwnerUsername        string  `json:"owner_username"`
	Description          string  `json:"description"`
	StoragePath          string  `json:"storage_path"`
	ProcessedStoragePath string  `json:"processed_storage_path,omitempty"`
	FileSize             int64   `json:"file_size"`
	MimeType             string  `json:"mime_type"`
	Duration             float64 `json:"duration"`
	Status               string  `json:"status"`
	UploadedAt           string  `json:"uploaded_at"`
	Version              int32   `json:"version"`
}

// RedisVideoCache implements VideoCache using Redis as the backing store.
type RedisVideoCache struct {
	client *redis.Client
}

// NewRedisVideoCache creates a new Redis-backed video cache.
func NewRedisVideoCache(client *redis.Client) *RedisVideoCache {
	return &RedisVideoCache{
		client: client,
	}
}

// Get retrieves a video from Redis cache. Returns nil, nil on cache miss.
func (c *RedisVideoCache) Get(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
	key := c.buildKey(publicID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	video, err := c.deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize video: %w", err)
	}

	return video, nil
}

// Set stores a video in Redis cache with the specified TTL.
func (c *RedisVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	key := c.buildKey(video.PublicID)

	data, err := c.serialize(video)
	if err != nil {
		return fmt.Errorf("serialize video: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a video from Redis cache.
func (c *RedisVideoCache) Delete(ctx context.Context, publicID uuid.UUID) error {
	key := c.buildKey(publicID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// buildKey constructs the Redis key for a video.
func (c *RedisVideoCache) buildKey(publicID uuid.UUID) string {
	return videoCacheKeyPrefix + publicID.String()
}

// serialize converts a Video to JSON bytes.
func (c *RedisVideoCache) serialize(video *model.Video) ([]byte, error) {
	v := videoJSON{
		ID:                   video.ID,
		PublicID:             video.PublicID.String(),
		OwnerID:              video.OwnerID,
		OwnerUsername:        video.OwnerUsername,
		Description:          video.Description,
		StoragePath:          video.StoragePath,
		ProcessedStoragePath: video.ProcessedStoragePath,
		FileSize:             video.FileSize,
		MimeType:             video.MimeType,
		Duration:             video.Duration,
		Status:               string(video.Status),
		UploadedAt:           video.UploadedAt.Format(time.RFC3339Nano),
		Version:              video.Version,
	}
	return json.Marshal(v)
}

// deserialize converts JSON bytes to a Video.
func (c *RedisVideoCache) deserialize(data []byte) (*model.Video, error) {
	var v videoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	publicID, err := uuid.Parse(v.PublicID)
	if err != nil {
		return nil, fmt.Errorf("parse public ID: %w", err)
	}

	uploadedAt, err := time.Parse(time.RFC3339Nano, v.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse uploaded_at: %w", err)
	}

	return &model.Video{
		ID:                   v.ID,
		PublicID:             publicID,
		OwnerID:              v.OwnerID,
		OwnerUsername:        v.OwnerUsername,
		Description:          v.Description,
		StoragePath:          v.StoragePath,
		ProcessedStoragePath: v.ProcessedStoragePath,
		FileSize:             v.FileSize,
		MimeType:             v.MimeType,
		Duration:             v.Duration,
		Status:               model.Status(v.Status),
		UploadedAt:           uploadedAt,
		Version:              v.Version,
	}, nil
}

var _ VideoCache = (*RedisVideoCache)(nil)
