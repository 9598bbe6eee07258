package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler receives refresh triggers from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	trigger          *TriggerHandler
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Trigger          *TriggerHandler
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Refreshes are coalesced per dashboard, so a few outstanding triggers
	// are enough.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 2 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		trigger:          cfg.Trigger,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	result, err := h.trigger.Handle(ctx, msg.Data)
	if err != nil {
		logger.Error().Err(err).Msg("refresh trigger failed")
		msg.Nack()
		return
	}

	logger.Info().
		Strs("refreshed", result.Refreshed).
		Strs("coalesced", result.Coalesced).
		Dur("duration", result.Duration).
		Msg("refresh trigger handled")
	msg.Ack()
}
