package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// AuditLog writes one log line per post change.
type AuditLog struct {
	upserted <-chan *message.Message
	deleted  <-chan *message.Message
	logger   zerolog.Logger
}

// NewAuditLog subscribes to the post topics before returning, so no change published after it
// returns is missed. The subscriptions end when ctx is done.
func NewAuditLog(ctx context.Context, subscriber message.Subscriber, logger zerolog.Logger) (*AuditLog, error) {
	upserted, err := subscriber.Subscribe(ctx, TopicPostUpserted)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", TopicPostUpserted, err)
	}
	deleted, err := subscriber.Subscribe(ctx, TopicPostDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", TopicPostDeleted, err)
	}

	return &AuditLog{upserted: upserted, deleted: deleted, logger: logger}, nil
}

// Run logs changes until ctx is done or both subscriptions close.
func (a *AuditLog) Run(ctx context.Context) error {
	upserted, deleted := a.upserted, a.deleted
	for upserted != nil || deleted != nil {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-upserted:
			if !ok {
				upserted = nil
				continue
			}
			logChange(a.logger, TopicPostUpserted, msg)
		case msg, ok := <-deleted:
			if !ok {
				deleted = nil
				continue
			}
			logChange(a.logger, TopicPostDeleted, msg)
		}
	}
	return nil
}

func logChange(logger zerolog.Logger, topic string, msg *message.Message) {
	defer msg.Ack()

	var evt PostChanged
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		logger.Error().Err(err).Str("topic", topic).Str("messageID", msg.UUID).Msg("Dropping malformed post event")
		return
	}

	entry := logger.Info().Str("topic", topic).Str("postID", evt.ID).Time("occurredAt", evt.OccurredAt)
	if topic == TopicPostUpserted {
		entry = entry.Str("title", evt.Title)
	}
	entry.Msg("Post changed")
}
