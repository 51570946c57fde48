// Package cache keeps user profiles in Redis so the notification endpoints
// do not hit Postgres on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"inventoryHub/internal/notification"
)

// ProfileSource loads a user profile by uid.
type ProfileSource interface {
	GetProfile(ctx context.Context, uid string) (*notification.UserProfile, error)
}

// ProfileCache is a read-through cache in front of a ProfileSource. Redis
// failures fall through to the source.
type ProfileCache struct {
	client *redis.Client
	source ProfileSource
	ttl    time.Duration
	prefix string
}

func NewProfileCache(client *redis.Client, source ProfileSource, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		client: client,
		source: source,
		ttl:    ttl,
		prefix: "profile:",
	}
}

func (c *ProfileCache) key(uid string) string {
	return c.prefix + uid
}

func (c *ProfileCache) GetProfile(ctx context.Context, uid string) (*notification.UserProfile, error) {
	raw, err := c.client.Get(ctx, c.key(uid)).Bytes()
	switch {
	case err == nil:
		var profile notification.UserProfile
		if err := json.Unmarshal(raw, &profile); err == nil {
			return &profile, nil
		}
		slog.Warn("discarding corrupt cached profile", "uid", uid)
	case !errors.Is(err, redis.Nil):
		slog.Warn("profile cache unavailable", "uid", uid, "error", err)
	}

	profile, err := c.source.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(profile); err == nil {
		if err := c.client.Set(ctx, c.key(uid), payload, c.ttl).Err(); err != nil {
			slog.Warn("failed to cache profile", "uid", uid, "error", err)
		}
	}
	return profile, nil
}

// Invalidate drops a cached profile after the user's role or scope changes.
func (c *ProfileCache) Invalidate(ctx context.Context, uid string) error {
	if err := c.client.Del(ctx, c.key(uid)).Err(); err != nil {
		return fmt.Errorf("invalidate profile: %w", err)
	}
	return nil
}

func (c *ProfileCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
