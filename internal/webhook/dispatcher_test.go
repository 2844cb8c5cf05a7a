package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	return db
}

func TestResolveSubscriptions_BotLevelShadowsProjectLevel(t *testing.T) {
	db := newTestDB(t)
	logger, _ := logging.NewApplicationLogger()
	d := NewDispatcher(db, logger, nil)

	botID := uint64(10)
	triggers := store.JSON(`["bot.state_change"]`)
	require.NoError(t, db.Create(&store.WebhookSubscription{
		ProjectID: 1, BotID: nil, URL: "https://project.example/hook",
		Triggers: triggers, IsActive: true,
		Secret: "s",
	}).Error)

	require.NoError(t, db.Create(&store.WebhookSubscription{
		ProjectID: 1, BotID: &botID, URL: "https://bot.example/hook",
		Triggers: triggers, IsActive: true, Secret: "s",
	}).Error)

	subs, err := d.resolveSubscriptions(context.Background(), 1, &botID, "bot.state_change")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://bot.example/hook", subs[0].URL)
}

func TestDeliver_SuccessMarksAttemptSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db := newTestDB(t)
	logger, _ := logging.NewApplicationLogger()
	d := NewDispatcher(db, logger, resty.New())

	sub := &store.WebhookSubscription{ID: 1, ProjectID: 1, URL: srv.URL, Secret: "secret", IsActive: true}
	require.NoError(t, db.Create(sub).Error)

	attempt := &store.WebhookDeliveryAttempt{
		SubscriptionID: sub.ID, Trigger: "bot.state_change",
		IdempotencyKey: "idem-1", Payload: store.NewJSONMap(map[string]any{"a": 1}),
		Status: store.WebhookDeliveryPending,
	}
	require.NoError(t, db.Create(attempt).Error)

	err := d.Deliver(context.Background(), attempt, sub)
	require.NoError(t, err)
	assert.Equal(t, store.WebhookDeliverySuccess, attempt.Status)
	assert.Equal(t, 1, attempt.AttemptCount)
}

func TestDeliver_FailureRetriesThenMarksFailure(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	db := newTestDB(t)
	logger, _ := logging.NewApplicationLogger()
	d := NewDispatcher(db, logger, resty.New())

	sub := &store.WebhookSubscription{ID: 2, ProjectID: 1, URL: srv.URL, Secret: "secret", IsActive: true}
	require.NoError(t, db.Create(sub).Error)

	attempt := &store.WebhookDeliveryAttempt{
		SubscriptionID: sub.ID, Trigger: "bot.state_change",
		IdempotencyKey: "idem-2", Payload: store.NewJSONMap(map[string]any{"a": 1}),
		Status: store.WebhookDeliveryPending,
	}
	require.NoError(t, db.Create(attempt).Error)

	err := d.Deliver(context.Background(), attempt, sub)
	assert.Error(t, err)
	assert.Equal(t, store.WebhookDeliveryFailure, attempt.Status)
	assert.Equal(t, maxDeliveryAttempts, hits)
}
