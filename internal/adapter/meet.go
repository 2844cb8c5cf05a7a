package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/meetbot/core/internal/autoleave"
	"github.com/meetbot/core/internal/statemachine"
)

// GoogleMeetAdapter is a minimal stub satisfying the Adapter interface for
// Google Meet, mirroring ZoomAdapter's shape (spec.md §6.2).
type GoogleMeetAdapter struct {
	baseAdapter
	policy *autoleave.Policy
	clock  autoleave.AdapterClock
}

func NewGoogleMeetAdapter(meetingURL string, callbacks Callbacks, policy *autoleave.Policy) *GoogleMeetAdapter {
	return &GoogleMeetAdapter{baseAdapter: newBase(meetingURL, callbacks), policy: policy}
}

func (g *GoogleMeetAdapter) MeetingType() MeetingType { return MeetingTypeGoogleMeet }

func (g *GoogleMeetAdapter) Init(ctx context.Context) error {
	g.joinedAt = time.Now()
	g.clock.JoinedAt = g.joinedAt
	if g.callbacks.SendMessage != nil {
		g.callbacks.SendMessage(AdapterMessage{Kind: statemachine.MsgBotJoinedMeeting})
	}
	return nil
}

func (g *GoogleMeetAdapter) Leave(ctx context.Context) error {
	if g.callbacks.SendMessage != nil {
		g.callbacks.SendMessage(AdapterMessage{Kind: statemachine.MsgBotLeftMeeting})
	}
	return nil
}

func (g *GoogleMeetAdapter) Cleanup(ctx context.Context) error { return nil }

func (g *GoogleMeetAdapter) SendRawAudio(pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return fmt.Errorf("adapter: empty audio buffer")
	}
	now := time.Now()
	g.clock.LastAudioReceivedAt = &now
	return nil
}

func (g *GoogleMeetAdapter) SendRawImage(png []byte) error {
	if len(png) == 0 {
		return fmt.Errorf("adapter: empty image buffer")
	}
	return nil
}

func (g *GoogleMeetAdapter) CheckAutoLeaveConditions() (statemachine.LeaveReason, bool) {
	if g.policy == nil {
		return "", false
	}
	g.clock.SilenceDetectionActivated = g.policy.ShouldActivateSilenceDetection(g.joinedAt)
	return g.policy.Check(g.clock)
}

func (g *GoogleMeetAdapter) GetParticipant(uuid string) (ParticipantInfo, bool) {
	return ParticipantInfo{}, false
}

func (g *GoogleMeetAdapter) GetFirstBufferTimestampMs() (int64, bool) {
	if g.joinedAt.IsZero() {
		return 0, false
	}
	return g.joinedAt.UnixMilli(), true
}
