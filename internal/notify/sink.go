package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/query-engine/internal/domain"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// NotificationSink delivers assignment notifications to the external
// delivery pipeline. Delivery is fire-and-forget: callers treat a failed
// publish as a warning, never as a reason to roll back the assignment.
type NotificationSink interface {
	PublishAssignment(ctx context.Context, event domain.AssignmentNotificationEvent) error
}

// RedisNotificationSink publishes events on a Redis channel and keeps a
// short-lived copy for a best-effort read-back check.
type RedisNotificationSink struct {
	client      *redis.Client
	logger      *zap.Logger
	channel     string
	readBackTTL time.Duration
}

// NewRedisNotificationSink constructs the sink.
func NewRedisNotificationSink(client *redis.Client, logger *zap.Logger, channel string, readBackTTL time.Duration) *RedisNotificationSink {
	if readBackTTL <= 0 {
		readBackTTL = time.Minute
	}
	return &RedisNotificationSink{
		client:      client,
		logger:      logger,
		channel:     channel,
		readBackTTL: readBackTTL,
	}
}

// PublishAssignment sends the event. One attempt, no queueing.
func (s *RedisNotificationSink) PublishAssignment(ctx context.Context, event domain.AssignmentNotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return apperrors.NewNotification(err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return apperrors.NewNotification(err)
	}

	s.verifyReadBack(ctx, event.ID, payload)
	return nil
}

// verifyReadBack stores the event under a keyed copy and reads it back.
// The check only confirms the broker is answering; its failure is logged
// and ignored.
func (s *RedisNotificationSink) verifyReadBack(ctx context.Context, eventID string, payload []byte) {
	key := "notify:event:" + eventID
	if err := s.client.Set(ctx, key, payload, s.readBackTTL).Err(); err != nil {
		s.logger.Debug("notification read-back store failed", zap.String("event_id", eventID), zap.Error(err))
		return
	}
	if err := s.client.Get(ctx, key).Err(); err != nil {
		s.logger.Debug("notification read-back fetch failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
