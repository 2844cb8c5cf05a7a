package adapter

import (
	"context"
	"time"

	"github.com/meetbot/core/internal/statemachine"
)

// ParticipantInfo is the subset of a platform participant record the core
// needs, returned by Adapter.GetParticipant (spec.md §6.2).
type ParticipantInfo struct {
	UUID        string
	UserUUID    string
	DisplayName string
}

// Callbacks are invoked by an Adapter, on arbitrary goroutines, into the
// Supervisor (spec.md §6.2's callback list). Implementations must be safe
// to call concurrently; the Supervisor side wraps these in its own
// message-queue posting.
type Callbacks struct {
	SendMessage         func(msg AdapterMessage)
	AddAudioChunk       func(participantID string, tsMs int64, pcm []byte)
	AddMixedAudioChunk  func(pcm []byte)
	AddVideoFrame       func(frame []byte, tsNs int64)
	WantsAnyVideoFrames func() bool
	UpsertCaption       func(captionID, deviceID, text string)
}

// AdapterMessage is one event posted from the Adapter to the Supervisor's
// message queue, keyed by the same AdapterMessageKind the state machine's
// transition table matches on.
type AdapterMessage struct {
	Kind     statemachine.AdapterMessageKind
	Metadata map[string]any
}

// Adapter is the uniform per-platform capability set the Supervisor drives
// (spec.md §6.2). Concrete SDK/browser-automation internals are explicitly
// out of scope (§1); these stub implementations only satisfy the shape.
type Adapter interface {
	// Init begins joining the meeting.
	Init(ctx context.Context) error
	// Leave requests a graceful leave.
	Leave(ctx context.Context) error
	// Cleanup releases all platform resources. Must be idempotent.
	Cleanup(ctx context.Context) error

	SendRawAudio(pcm []byte, sampleRate int) error
	SendRawImage(png []byte) error

	// CheckAutoLeaveConditions is called once per Supervisor tick.
	CheckAutoLeaveConditions() (statemachine.LeaveReason, bool)

	GetParticipant(uuid string) (ParticipantInfo, bool)

	// GetFirstBufferTimestampMs returns the wall-clock time of the first
	// media buffer, for pipeline PTS alignment (spec.md §6.2).
	GetFirstBufferTimestampMs() (int64, bool)

	// MeetingType reports which platform this Adapter drives.
	MeetingType() MeetingType
}

// baseAdapter holds the state shared by every stub implementation:
// meeting URL parsing results, callbacks, and the auto-leave clock.
type baseAdapter struct {
	meetingURL string
	meetingID  string
	passcode   string
	callbacks  Callbacks
	joinedAt   time.Time
}

func newBase(meetingURL string, callbacks Callbacks) baseAdapter {
	return baseAdapter{meetingURL: meetingURL, callbacks: callbacks}
}
