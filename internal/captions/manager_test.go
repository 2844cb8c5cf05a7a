package captions

import (
	"testing"
	"time"

	"github.com/meetbot/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertThenProcess_DebouncesBeforeOneSecond(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var saved []*store.Utterance
	m := NewManager(1, func(deviceID string) *store.Participant {
		return &store.Participant{ID: 42}
	}, func(u *store.Utterance) { saved = append(saved, u) })
	m.clock = func() time.Time { return now }

	m.Upsert(Data{CaptionID: "c1", DeviceID: "d1", Text: "hello"})
	m.Process()
	assert.Empty(t, saved, "should not upsert before the 1s debounce window")

	now = now.Add(1100 * time.Millisecond)
	m.Process()
	require.Len(t, saved, 1)
	assert.Equal(t, uint64(42), saved[0].ParticipantID)
	assert.Equal(t, store.UtteranceSourceClosedCaption, saved[0].Source)
}

func TestUpsert_UpdatesExistingEntryInPlace(t *testing.T) {
	now := time.Now()
	m := NewManager(1, func(deviceID string) *store.Participant { return &store.Participant{ID: 1} }, func(u *store.Utterance) {})
	m.clock = func() time.Time { return now }

	m.Upsert(Data{CaptionID: "c1", DeviceID: "d1", Text: "he"})
	m.Upsert(Data{CaptionID: "c1", DeviceID: "d1", Text: "hello"})

	assert.Len(t, m.captions, 1, "same (deviceId, captionId) key must coalesce into one entry")
	assert.Equal(t, "hello", m.captions["d1:c1"].data.Text)
}

func TestFlush_BypassesDebounceWindow(t *testing.T) {
	now := time.Now()
	var saved []*store.Utterance
	m := NewManager(1, func(deviceID string) *store.Participant { return &store.Participant{ID: 1} }, func(u *store.Utterance) { saved = append(saved, u) })
	m.clock = func() time.Time { return now }

	m.Upsert(Data{CaptionID: "c1", DeviceID: "d1", Text: "hi"})
	m.Flush()
	require.Len(t, saved, 1)
}

func TestProcess_EvictsEntryAfterQuietMinute(t *testing.T) {
	now := time.Now()
	m := NewManager(1, func(deviceID string) *store.Participant { return &store.Participant{ID: 1} }, func(u *store.Utterance) {})
	m.clock = func() time.Time { return now }

	m.Upsert(Data{CaptionID: "c1", DeviceID: "d1", Text: "hi"})
	now = now.Add(61 * time.Second)
	m.Process()

	assert.Empty(t, m.captions, "a caption quiet for over a minute must be evicted")
}

func TestProcess_NoParticipantSkipsUpsertButKeepsEntry(t *testing.T) {
	now := time.Now()
	var saved []*store.Utterance
	m := NewManager(1, func(deviceID string) *store.Participant { return nil }, func(u *store.Utterance) { saved = append(saved, u) })
	m.clock = func() time.Time { return now }

	m.Upsert(Data{CaptionID: "c1", DeviceID: "unknown", Text: "hi"})
	now = now.Add(2 * time.Second)
	m.Process()

	assert.Empty(t, saved)
	assert.Len(t, m.captions, 1)
}
