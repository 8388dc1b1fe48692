package subscribers

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"pictor/internal/config"
	"pictor/internal/logging"
	"pictor/internal/registry"
)

// RedisSubscriber listens on a pub/sub channel for completed generation
// operations and registers the produced images. The Manager restarts it
// on connection loss.
type RedisSubscriber struct {
	url     string
	channel string
}

// NewRedisSubscriber builds the bus listener from configuration.
func NewRedisSubscriber(cfg *config.Config) *RedisSubscriber {
	return &RedisSubscriber{
		url:     cfg.Redis.URL,
		channel: cfg.Redis.Channel,
	}
}

func (s *RedisSubscriber) Name() string { return "conduit" }

// Run connects, subscribes, and consumes bus events until ctx is done or
// the connection drops. Any returned error means "reconnect".
func (s *RedisSubscriber) Run(ctx context.Context, env Env) error {
	opts, err := redis.ParseURL(s.url)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	sub := client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// Confirms the subscription actually started.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	env.Logger.Info("subscribed", logging.String("channel", s.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			s.handleMessage(ctx, env, []byte(msg.Payload))
		}
	}
}

// handleMessage absorbs all per-message failures; a malformed or
// irrelevant event must not tear down the subscription.
func (s *RedisSubscriber) handleMessage(ctx context.Context, env Env, payload []byte) {
	event, err := parseBusEvent(payload)
	if err != nil {
		env.Logger.Warn("discarding malformed bus event", logging.Error(err))
		return
	}
	if event.EventType != "operation.completed" || event.tool() != "conduit" {
		return
	}

	output, tag := selectPreferredImage(event.Data.Outputs)
	if output == nil {
		return
	}
	if _, err := os.Stat(output.FilePath); err != nil {
		env.Logger.Warn("skipping missing artifact",
			logging.String(logging.FieldImagePath, output.FilePath))
		return
	}

	extra := map[string]string{
		registry.KeyID:    event.Data.OperationID,
		"generation_type": event.Data.Metadata.CallerContext.GenerationType,
	}
	reg, err := env.Store.Register(ctx, output.FilePath, registry.SourceConduit, extra)
	if err != nil {
		env.Logger.Error("registration failed",
			logging.String(logging.FieldImagePath, output.FilePath), logging.Error(err))
		return
	}
	if reg == nil {
		// Already registered; nothing to broadcast.
		return
	}

	env.Logger.Info("registered artifact from bus event",
		logging.String(logging.FieldImagePath, reg.ImagePath),
		logging.String(logging.FieldRegistrationID, reg.ID),
		logging.String("tag", tag),
	)
	env.State.ImageAdded(reg)
}
