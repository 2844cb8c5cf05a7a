// Package captions implements the Closed-Caption Aggregator (spec.md §4.7),
// grounded on
// original_source/bots/bot_controller/closed_caption_manager.py: platform
// closed-caption deltas arrive keyed by (deviceId, captionId) and are
// coalesced in memory until they settle, at which point they are persisted
// as an Utterance.
package captions

import (
	"time"

	"github.com/meetbot/core/internal/store"
)

// Data is one platform closed-caption delta.
type Data struct {
	CaptionID string
	DeviceID  string
	Text      string
}

func key(d Data) string { return d.DeviceID + ":" + d.CaptionID }

// entry tracks one in-flight caption's lifecycle for debounced persistence.
type entry struct {
	data           Data
	createdAt      time.Time
	modifiedAt     time.Time
	lastUpsertedAt *time.Time
}

func newEntry(d Data, now time.Time) *entry {
	return &entry{data: d, createdAt: now, modifiedAt: now}
}

func (e *entry) update(d Data, now time.Time) {
	e.data = d
	e.modifiedAt = now
}

// shouldUpsert mirrors CaptionEntry.should_upsert_to_db: a caption upserts
// once a second after creation if never upserted, or once two seconds have
// passed since the last modification if it has changed since the previous
// upsert. should_flush bypasses both debounce windows.
func (e *entry) shouldUpsert(now time.Time, shouldFlush bool) bool {
	if e.lastUpsertedAt == nil {
		return now.Sub(e.createdAt) > time.Second || shouldFlush
	}
	return e.modifiedAt.After(*e.lastUpsertedAt) && (now.Sub(e.modifiedAt) > 2*time.Second || shouldFlush)
}

func (e *entry) markUpserted(now time.Time) {
	e.lastUpsertedAt = &now
}

// ParticipantLookup resolves a device id to the participant speaking, or
// nil if unknown.
type ParticipantLookup func(deviceID string) *store.Participant

// SaveUtterance persists one settled caption as an Utterance row.
type SaveUtterance func(u *store.Utterance)

// Manager coalesces closed-caption deltas in memory and flushes settled
// ones to storage. It is not safe for concurrent use; callers serialize
// access through the Supervisor's single event-loop goroutine, matching
// the teacher's single-writer-by-construction model.
type Manager struct {
	captions      map[string]*entry
	saveUtterance SaveUtterance
	lookup        ParticipantLookup
	recordingID   uint64
	clock         func() time.Time
}

// NewManager builds a Manager for the given recording.
func NewManager(recordingID uint64, lookup ParticipantLookup, save SaveUtterance) *Manager {
	return &Manager{
		captions:      make(map[string]*entry),
		saveUtterance: save,
		lookup:        lookup,
		recordingID:   recordingID,
		clock:         time.Now,
	}
}

// Upsert records a caption delta, creating a new in-flight entry or
// updating an existing one keyed by (deviceId, captionId).
func (m *Manager) Upsert(d Data) {
	now := m.clock()
	k := key(d)
	if e, ok := m.captions[k]; ok {
		e.update(d, now)
		return
	}
	m.captions[k] = newEntry(d, now)
}

// Flush forces every in-flight caption to persist regardless of its
// debounce window, for use at meeting-end / recording-stop.
func (m *Manager) Flush() {
	m.process(true)
}

// Process persists captions that have settled past their debounce window
// and evicts entries that have been quiet for a full minute. Call once per
// Supervisor tick.
func (m *Manager) Process() {
	m.process(false)
}

func (m *Manager) process(shouldFlush bool) {
	now := m.clock()
	for k, e := range m.captions {
		if !e.shouldUpsert(now, shouldFlush) {
			continue
		}
		participant := m.lookup(e.data.DeviceID)
		if participant != nil {
			m.saveUtterance(&store.Utterance{
				RecordingID:   m.recordingID,
				ParticipantID: participant.ID,
				Source:        store.UtteranceSourceClosedCaption,
				StartOffsetMs: e.createdAt.UnixMilli(),
				DurationMs:    e.modifiedAt.Sub(e.createdAt).Milliseconds(),
				Transcription: store.NewJSONMap(map[string]any{"text": e.data.Text}),
				SourceUUID:    sourceUUID(e.data),
			})
			e.markUpserted(now)
		}

		if now.Sub(e.modifiedAt) > 60*time.Second {
			delete(m.captions, k)
		}
	}
}

func sourceUUID(d Data) *string {
	s := d.DeviceID + "-" + d.CaptionID
	return &s
}
