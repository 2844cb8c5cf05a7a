// Package redislistener subscribes to a per-bot Redis pub/sub channel for
// out-of-band commands (spec.md §4.3), grounded on
// original_source/bots/bot_controller/bot_controller.py's
// connect_to_redis/redis_listener/handle_redis_message, with the client
// itself modeled on the teacher's `github.com/redis/go-redis/v9` usage in
// sip/infra/rtp_port_allocator.go.
package redislistener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/meetbot/core/internal/logging"
)

const (
	reconnectDelay   = 1 * time.Second
	maxReconnectTries = 30
)

// Command is one decoded message from the bot's command channel, mirroring
// handle_redis_message's `data.get("command")` dispatch.
type Command struct {
	Name string `json:"command"`
}

// Handler processes one decoded Command. It runs on the listener's own
// goroutine; callers that need to touch Supervisor state must post their
// own closure onto the Supervisor's channel from inside Handler.
type Handler func(cmd Command)

// Channel returns the pub/sub channel name for botID, mirroring
// `f"bot_{self.bot_in_db.id}"`.
func Channel(botID string) string {
	return fmt.Sprintf("bot_%s", botID)
}

// Listener subscribes to one bot's command channel and invokes handler for
// each decoded message, reconnecting on connection loss.
type Listener struct {
	client  *redis.Client
	channel string
	handler Handler
	logger  logging.Logger
}

// New builds a Listener for botID over client.
func New(client *redis.Client, botID string, handler Handler, logger logging.Logger) *Listener {
	return &Listener{client: client, channel: Channel(botID), handler: handler, logger: logger}
}

// Run subscribes and processes messages until ctx is canceled. On a
// connection error it reconnects with a constant 1s delay, up to 30
// attempts (mirroring repeatedly_try_to_reconnect_to_redis exactly, hence
// backoff.NewConstantBackOff rather than the package's usual exponential
// policy), returning an error if reconnection is exhausted.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.subscribeAndListen(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Infow("redis listener: connection lost, reconnecting", "error", err)
			if reconnectErr := l.reconnect(ctx); reconnectErr != nil {
				return reconnectErr
			}
			continue
		}
		return nil
	}
}

func (l *Listener) subscribeAndListen(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis listener: subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis listener: subscription channel closed")
			}
			l.dispatch(msg.Payload)
		}
	}
}

func (l *Listener) dispatch(payload string) {
	var cmd Command
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		l.logger.Infow("redis listener: malformed command payload", "error", err, "payload", payload)
		return
	}
	if cmd.Name == "" {
		l.logger.Infow("redis listener: unknown command", "payload", payload)
		return
	}
	l.handler(cmd)
}

func (l *Listener) reconnect(ctx context.Context) error {
	// WithMaxRetries counts retries after the first try, so n-1 retries
	// make maxReconnectTries attempts in total.
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(reconnectDelay), maxReconnectTries-1), ctx)
	attempt := 0
	op := func() error {
		attempt++
		if err := l.client.Ping(ctx).Err(); err != nil {
			l.logger.Infow("redis listener: reconnect attempt failed", "attempt", attempt, "max", maxReconnectTries, "error", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("redis listener: failed to reconnect after %d attempts: %w", maxReconnectTries, err)
	}
	return nil
}
