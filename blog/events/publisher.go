package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dfryer1193/blogapi/blog/domain"
)

const (
	TopicPostUpserted = "post.upserted"
	TopicPostDeleted  = "post.deleted"
)

// PostChanged is the payload of both post topics. Title and UpdatedAt are zero for deletions.
type PostChanged struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher turns committed post writes into watermill messages.
type Publisher struct {
	publisher message.Publisher
	now       func() time.Time
}

func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// NewGoChannel returns the in-process pub/sub used when no broker is configured.
// Messages published with no subscriber are dropped.
func NewGoChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
}

func (p *Publisher) PostUpserted(_ context.Context, post *domain.Post) error {
	return p.publish(TopicPostUpserted, PostChanged{
		ID:         post.ID,
		Title:      post.Title,
		UpdatedAt:  post.UpdatedAt,
		OccurredAt: p.now().UTC(),
	})
}

func (p *Publisher) PostDeleted(_ context.Context, id string) error {
	return p.publish(TopicPostDeleted, PostChanged{
		ID:         id,
		OccurredAt: p.now().UTC(),
	})
}

func (p *Publisher) publish(topic string, payload PostChanged) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event for post %s: %w", topic, payload.ID, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("post_id", payload.ID)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event for post %s: %w", topic, payload.ID, err)
	}
	return nil
}
