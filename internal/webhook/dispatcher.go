package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/store"
	"gorm.io/gorm"
)

// maxDeliveryAttempts mirrors the up-to-3-attempt exponential retry spec.md
// §4.12 calls for.
const maxDeliveryAttempts = 3

// Dispatcher resolves the subscriptions a trigger fans out to and delivers
// signed payloads to each, recording a WebhookDeliveryAttempt per
// subscription (trigger_webhook / deliver_webhook_task).
type Dispatcher struct {
	db     *gorm.DB
	logger logging.Logger
	client *resty.Client
}

// NewDispatcher builds a Dispatcher using the given resty client, or a
// freshly constructed one if client is nil.
func NewDispatcher(db *gorm.DB, logger logging.Logger, client *resty.Client) *Dispatcher {
	if client == nil {
		client = resty.New().SetTimeout(10 * time.Second)
	}
	return &Dispatcher{db: db, logger: logger, client: client}
}

// Trigger resolves the subscriptions for (projectID, botID, triggerType) —
// bot-level subscriptions shadow project-level ones exactly as
// trigger_webhook does — creates a WebhookDeliveryAttempt per match, and
// fires delivery for each. It returns the number of attempts created.
func (d *Dispatcher) Trigger(ctx context.Context, projectID uint64, botID *uint64, triggerType string, payload map[string]any) (int, error) {
	subs, err := d.resolveSubscriptions(ctx, projectID, botID, triggerType)
	if err != nil {
		return 0, err
	}

	for i := range subs {
		sub := subs[i]
		attempt := &store.WebhookDeliveryAttempt{
			SubscriptionID: sub.ID,
			BotID:          botID,
			Trigger:        triggerType,
			IdempotencyKey: uuid.NewString(),
			Payload:        store.NewJSONMap(payload),
			Status:         store.WebhookDeliveryPending,
			ResponseBodies: store.NewJSONMap(nil),
		}
		if err := d.db.WithContext(ctx).Create(attempt).Error; err != nil {
			return 0, err
		}
		go func() {
			if err := d.Deliver(context.Background(), attempt, &sub); err != nil {
				d.logger.Warnw("webhook delivery failed", "subscriptionId", sub.ID, "trigger", triggerType, "error", err)
			}
		}()
	}
	return len(subs), nil
}

func (d *Dispatcher) resolveSubscriptions(ctx context.Context, projectID uint64, botID *uint64, triggerType string) ([]store.WebhookSubscription, error) {
	db := d.db.WithContext(ctx)

	if botID != nil {
		var botSubs []store.WebhookSubscription
		if err := db.Where("bot_id = ? AND is_active = ?", *botID, true).Find(&botSubs).Error; err != nil {
			return nil, err
		}
		if len(botSubs) > 0 {
			return filterByTrigger(botSubs, triggerType), nil
		}
	}

	var projectSubs []store.WebhookSubscription
	if err := db.Where("project_id = ? AND bot_id IS NULL AND is_active = ?", projectID, true).Find(&projectSubs).Error; err != nil {
		return nil, err
	}
	return filterByTrigger(projectSubs, triggerType), nil
}

func filterByTrigger(subs []store.WebhookSubscription, triggerType string) []store.WebhookSubscription {
	out := make([]store.WebhookSubscription, 0, len(subs))
	for _, s := range subs {
		for _, t := range s.TriggersList() {
			if t == triggerType {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Deliver POSTs one attempt's payload to its subscription's URL with an
// HMAC signature header, retrying with exponential backoff up to
// maxDeliveryAttempts, and persists the terminal status.
func (d *Dispatcher) Deliver(ctx context.Context, attempt *store.WebhookDeliveryAttempt, sub *store.WebhookSubscription) error {
	signature, err := SignPayload(attempt.Payload.Map(), sub.Secret)
	if err != nil {
		return fmt.Errorf("webhook: sign payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	bounded := backoff.WithMaxRetries(b, maxDeliveryAttempts-1)

	responseBodies := []any{}
	op := func() error {
		attempt.AttemptCount++
		now := time.Now()
		attempt.LastAttemptAt = &now

		resp, err := d.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader("X-Webhook-Signature", signature).
			SetHeader("X-Webhook-Idempotency-Key", attempt.IdempotencyKey).
			SetBody(attempt.Payload).
			Post(sub.URL)
		if err != nil {
			responseBodies = append(responseBodies, map[string]any{"error": err.Error()})
			return err
		}
		responseBodies = append(responseBodies, map[string]any{"status": resp.StatusCode(), "body": resp.String()})
		if resp.IsError() {
			return fmt.Errorf("webhook: %s returned %d", sub.URL, resp.StatusCode())
		}
		return nil
	}

	deliverErr := backoff.Retry(op, backoff.WithContext(bounded, ctx))
	attempt.ResponseBodies = store.NewJSONMap(map[string]any{"attempts": responseBodies})
	if deliverErr != nil {
		attempt.Status = store.WebhookDeliveryFailure
	} else {
		attempt.Status = store.WebhookDeliverySuccess
	}

	if err := d.db.WithContext(ctx).Save(attempt).Error; err != nil {
		return err
	}
	return deliverErr
}
