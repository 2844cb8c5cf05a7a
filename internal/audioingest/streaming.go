package audioingest

import (
	"time"
)

// silenceDurationLimit mirrors SILENCE_DURATION_LIMIT: a streaming
// transcriber is torn down once its speaker has been silent this long.
const silenceDurationLimit = 10 * time.Second

// maxConcurrentTranscribers mirrors the hardcoded cap in monitor_transcription:
// once exceeded, the least-recently-sent-to transcriber is evicted.
const maxConcurrentTranscribers = 4

// StreamingTranscriber is a live transcription session for one speaker.
type StreamingTranscriber interface {
	Send(chunk []byte) error
	Finish() error
}

// TranscriberFactory creates a StreamingTranscriber for a speaker, lazily,
// mirroring find_or_create_streaming_transcriber_for_speaker's provider
// dispatch.
type TranscriberFactory func(speakerID string) (StreamingTranscriber, error)

type speakerState struct {
	transcriber     StreamingTranscriber
	lastSendTime    time.Time
	lastNonsilentAt time.Time
}

// StreamingManager routes per-speaker PCM chunks to streaming transcribers,
// creating them lazily, starving out silent speakers, and capping
// concurrency at maxConcurrentTranscribers.
type StreamingManager struct {
	detector       VoiceDetector
	sampleRate     int
	newTranscriber TranscriberFactory
	clock          func() time.Time

	speakers map[string]*speakerState
}

// NewStreamingManager builds a StreamingManager.
func NewStreamingManager(detector VoiceDetector, sampleRate int, factory TranscriberFactory) *StreamingManager {
	return &StreamingManager{
		detector:       detector,
		sampleRate:     sampleRate,
		newTranscriber: factory,
		clock:          time.Now,
		speakers:       make(map[string]*speakerState),
	}
}

// AddChunk mirrors add_chunk: silent chunks with no existing transcriber are
// dropped; otherwise the chunk is forwarded to that speaker's (possibly
// newly created) transcriber.
func (m *StreamingManager) AddChunk(speakerID string, chunk []byte) error {
	now := m.clock()
	silent := IsSilent(m.detector, chunk, m.sampleRate)

	st, exists := m.speakers[speakerID]

	if !silent {
		if !exists {
			t, err := m.newTranscriber(speakerID)
			if err != nil {
				return err
			}
			st = &speakerState{transcriber: t}
			m.speakers[speakerID] = st
		}
		st.lastNonsilentAt = now
	} else if !exists {
		return nil
	}

	st.lastSendTime = now
	return st.transcriber.Send(chunk)
}

// Monitor mirrors monitor_transcription: finish and evict transcribers that
// have gone silent too long, then enforce the concurrency cap by evicting
// the least-recently-sent-to transcriber.
func (m *StreamingManager) Monitor() {
	now := m.clock()
	for speakerID, st := range m.speakers {
		if now.Sub(st.lastNonsilentAt) > silenceDurationLimit {
			st.transcriber.Finish()
			delete(m.speakers, speakerID)
		}
	}

	for len(m.speakers) > maxConcurrentTranscribers {
		var oldestID string
		var oldest time.Time
		for speakerID, st := range m.speakers {
			if oldestID == "" || st.lastSendTime.Before(oldest) {
				oldestID = speakerID
				oldest = st.lastSendTime
			}
		}
		m.speakers[oldestID].transcriber.Finish()
		delete(m.speakers, oldestID)
	}
}

// ActiveSpeakers returns the speaker ids currently holding a live
// transcriber, for tests and diagnostics.
func (m *StreamingManager) ActiveSpeakers() []string {
	out := make([]string, 0, len(m.speakers))
	for id := range m.speakers {
		out = append(out, id)
	}
	return out
}
