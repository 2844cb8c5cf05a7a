package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/meetbot/core/internal/autoleave"
	"github.com/meetbot/core/internal/statemachine"
)

// ZoomAdapter is a minimal stub satisfying the Adapter interface for Zoom
// meetings. The Zoom SDK integration itself is out of scope (spec.md §1);
// this type exists so the rest of the core (Supervisor, audio pipeline,
// auto-leave policy) can be built and tested against a real MeetingType
// without a live SDK dependency.
type ZoomAdapter struct {
	baseAdapter
	policy *autoleave.Policy
	clock  autoleave.AdapterClock
}

// NewZoomAdapter builds a ZoomAdapter for meetingURL, parsed per spec.md
// §6.1 (Zoom meeting id + passcode extraction).
func NewZoomAdapter(meetingURL string, callbacks Callbacks, policy *autoleave.Policy) (*ZoomAdapter, error) {
	meetingID, err := ZoomMeetingID(meetingURL)
	if err != nil {
		return nil, err
	}
	base := newBase(meetingURL, callbacks)
	base.meetingID = meetingID
	base.passcode = ZoomPasscode(meetingURL)
	return &ZoomAdapter{baseAdapter: base, policy: policy}, nil
}

func (z *ZoomAdapter) MeetingType() MeetingType { return MeetingTypeZoom }

func (z *ZoomAdapter) Init(ctx context.Context) error {
	z.joinedAt = time.Now()
	z.clock.JoinedAt = z.joinedAt
	if z.callbacks.SendMessage != nil {
		z.callbacks.SendMessage(AdapterMessage{Kind: statemachine.MsgBotJoinedMeeting})
	}
	return nil
}

func (z *ZoomAdapter) Leave(ctx context.Context) error {
	if z.callbacks.SendMessage != nil {
		z.callbacks.SendMessage(AdapterMessage{Kind: statemachine.MsgBotLeftMeeting})
	}
	return nil
}

func (z *ZoomAdapter) Cleanup(ctx context.Context) error {
	return nil
}

func (z *ZoomAdapter) SendRawAudio(pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return fmt.Errorf("adapter: empty audio buffer")
	}
	now := time.Now()
	z.clock.LastAudioReceivedAt = &now
	return nil
}

func (z *ZoomAdapter) SendRawImage(png []byte) error {
	if len(png) == 0 {
		return fmt.Errorf("adapter: empty image buffer")
	}
	return nil
}

func (z *ZoomAdapter) CheckAutoLeaveConditions() (statemachine.LeaveReason, bool) {
	if z.policy == nil {
		return "", false
	}
	z.clock.SilenceDetectionActivated = z.policy.ShouldActivateSilenceDetection(z.joinedAt)
	return z.policy.Check(z.clock)
}

func (z *ZoomAdapter) GetParticipant(uuid string) (ParticipantInfo, bool) {
	return ParticipantInfo{}, false
}

func (z *ZoomAdapter) GetFirstBufferTimestampMs() (int64, bool) {
	if z.joinedAt.IsZero() {
		return 0, false
	}
	return z.joinedAt.UnixMilli(), true
}
