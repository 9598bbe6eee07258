package automation

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Publisher hands run requests to the fetch backend's queue.
type Publisher interface {
	Publish(ctx context.Context, req RunRequest) error
}

// PubSubPublisherConfig holds configuration for the Pub/Sub publisher.
type PubSubPublisherConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// PubSubPublisher publishes run requests to a Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewPubSubPublisher creates a Pub/Sub publisher.
func NewPubSubPublisher(ctx context.Context, cfg PubSubPublisherConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Publish sends req and waits for the server to acknowledge it.
func (p *PubSubPublisher) Publish(ctx context.Context, req RunRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding run request: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_type": "automated_fetch",
			"user_id":  req.UserID,
		},
	})

	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing run request: %w", err)
	}

	p.logger.Info().
		Str("topic", p.topic).
		Str("message_id", serverID).
		Str("request_id", req.ID).
		Str("user_id", req.UserID).
		Msg("automated fetch requested")

	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// LogPublisher logs run requests instead of sending them. It stands in for
// the queue when no Pub/Sub topic is configured.
type LogPublisher struct {
	Logger zerolog.Logger
}

// Publish logs req.
func (p LogPublisher) Publish(_ context.Context, req RunRequest) error {
	p.Logger.Warn().
		Str("request_id", req.ID).
		Str("user_id", req.UserID).
		Msg("no automation topic configured, run request dropped")
	return nil
}
