package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const autoAssignField = "auto_assign_enabled"

// SettingsRepository persists global settings in a Redis hash.
type SettingsRepository interface {
	// AutoAssignEnabled returns the stored toggle and whether one was stored.
	AutoAssignEnabled(ctx context.Context) (enabled bool, stored bool, err error)
	SetAutoAssignEnabled(ctx context.Context, enabled bool) error
}

type settingsRepository struct {
	client *redis.Client
	key    string
}

// NewSettingsRepository returns a Redis-backed settings store.
func NewSettingsRepository(client *redis.Client, key string) SettingsRepository {
	return &settingsRepository{client: client, key: key}
}

func (r *settingsRepository) AutoAssignEnabled(ctx context.Context) (bool, bool, error) {
	raw, err := r.client.HGet(ctx, r.key, autoAssignField).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, nil
	}
	return enabled, true, nil
}

func (r *settingsRepository) SetAutoAssignEnabled(ctx context.Context, enabled bool) error {
	return r.client.HSet(ctx, r.key, autoAssignField, strconv.FormatBool(enabled)).Err()
}
