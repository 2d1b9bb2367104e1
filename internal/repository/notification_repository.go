package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NotificationRepository stores per-user notification inboxes, newest first.
type NotificationRepository interface {
	Push(ctx context.Context, notification *domain.Notification) error
	List(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	Clear(ctx context.Context, userID string) error
}

type notificationRepository struct {
	client    *redis.Client
	keyPrefix string
	maxLen    int
}

// NewNotificationRepository returns a Redis list backed inbox capped at maxLen entries.
func NewNotificationRepository(client *redis.Client, keyPrefix string, maxLen int) NotificationRepository {
	return &notificationRepository{client: client, keyPrefix: keyPrefix, maxLen: maxLen}
}

func (r *notificationRepository) key(userID string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, userID)
}

func (r *notificationRepository) Push(ctx context.Context, notification *domain.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	key := r.key(notification.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		if r.maxLen > 0 {
			pipe.LTrim(ctx, key, 0, int64(r.maxLen-1))
		}
		return nil
	})
	return err
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || (r.maxLen > 0 && limit > r.maxLen) {
		limit = r.maxLen
	}
	stop := int64(limit - 1)
	if limit <= 0 {
		stop = -1
	}

	raw, err := r.client.LRange(ctx, r.key(userID), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	result := make([]domain.Notification, 0, len(raw))
	for _, item := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		result = append(result, n)
	}
	return result, nil
}

func (r *notificationRepository) Clear(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}
