// Package cache provides cross-process coordination for the ranking
// engine: an optional Redis pub/sub channel that lets every server
// replica learn about a feedback update faster than the periodic
// ReloadFromStore sweep.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/connexus-ai/companion-rank/internal/service"
)

const armUpdatedChannel = "companion-rank:arm-updated"

// armUpdatedMessage is the pub/sub payload for one feedback-driven arm
// change.
type armUpdatedMessage struct {
	MainID int64 `json:"main_id"`
	RecID  int64 `json:"rec_id"`
}

// ArmReloader is the subset of BanditState the subscriber needs. A
// full reload is simpler and cheap enough at this table's scale than
// plumbing a single-arm fetch through the ArmStore interface, and it
// is idempotent: reloading values this process already has is a
// no-op in effect.
type ArmReloader interface {
	ReloadFromStore(ctx context.Context) error
}

var _ service.ArmPublisher = (*ArmBus)(nil)

// ArmBus publishes and subscribes to arm-update notifications over
// Redis. A nil *ArmBus is never constructed; callers that didn't
// configure REDIS_URL simply pass a nil service.ArmPublisher to
// service.NewBanditState instead.
type ArmBus struct {
	client *redis.Client
}

// NewArmBus creates an ArmBus against the given Redis connection
// string (e.g. "redis://localhost:6379/0").
func NewArmBus(redisURL string) (*ArmBus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache.NewArmBus: parse url: %w", err)
	}
	return &ArmBus{client: redis.NewClient(opt)}, nil
}

// PublishArmUpdated broadcasts that (mainID, recID)'s arm changed. It
// implements service.ArmPublisher.
func (b *ArmBus) PublishArmUpdated(ctx context.Context, key service.ArmKey) error {
	payload, err := json.Marshal(armUpdatedMessage{MainID: key.MainID, RecID: key.RecID})
	if err != nil {
		return fmt.Errorf("cache.PublishArmUpdated: marshal: %w", err)
	}
	if err := b.client.Publish(ctx, armUpdatedChannel, payload).Err(); err != nil {
		return fmt.Errorf("cache.PublishArmUpdated: publish: %w", err)
	}
	return nil
}

// Subscribe runs until ctx is cancelled, reloading bandit on every
// arm-update notification received from any process (including this
// one's own publishes, which is a harmless redundant reload). Intended
// to be started once as a background goroutine at boot.
func (b *ArmBus) Subscribe(ctx context.Context, bandit ArmReloader) {
	sub := b.client.Subscribe(ctx, armUpdatedChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m armUpdatedMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				slog.Warn("armbus: malformed update message", "error", err)
				continue
			}
			if err := bandit.ReloadFromStore(ctx); err != nil {
				slog.Warn("armbus: reload after update notification failed",
					"main_id", m.MainID, "rec_id", m.RecID, "error", err)
			}
		}
	}
}

// Close releases the underlying Redis connection.
func (b *ArmBus) Close() error {
	return b.client.Close()
}
