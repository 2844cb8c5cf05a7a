package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/meetbot/core/internal/autoleave"
	"github.com/meetbot/core/internal/statemachine"
)

// TeamsAdapter is a minimal stub satisfying the Adapter interface for
// Microsoft Teams, mirroring ZoomAdapter's shape (spec.md §6.2).
type TeamsAdapter struct {
	baseAdapter
	policy *autoleave.Policy
	clock  autoleave.AdapterClock
}

func NewTeamsAdapter(meetingURL string, callbacks Callbacks, policy *autoleave.Policy) *TeamsAdapter {
	return &TeamsAdapter{baseAdapter: newBase(meetingURL, callbacks), policy: policy}
}

func (t *TeamsAdapter) MeetingType() MeetingType { return MeetingTypeTeams }

func (t *TeamsAdapter) Init(ctx context.Context) error {
	t.joinedAt = time.Now()
	t.clock.JoinedAt = t.joinedAt
	if t.callbacks.SendMessage != nil {
		t.callbacks.SendMessage(AdapterMessage{Kind: statemachine.MsgBotJoinedMeeting})
	}
	return nil
}

func (t *TeamsAdapter) Leave(ctx context.Context) error {
	if t.callbacks.SendMessage != nil {
		t.callbacks.SendMessage(AdapterMessage{Kind: statemachine.MsgBotLeftMeeting})
	}
	return nil
}

func (t *TeamsAdapter) Cleanup(ctx context.Context) error { return nil }

func (t *TeamsAdapter) SendRawAudio(pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return fmt.Errorf("adapter: empty audio buffer")
	}
	now := time.Now()
	t.clock.LastAudioReceivedAt = &now
	return nil
}

func (t *TeamsAdapter) SendRawImage(png []byte) error {
	if len(png) == 0 {
		return fmt.Errorf("adapter: empty image buffer")
	}
	return nil
}

func (t *TeamsAdapter) CheckAutoLeaveConditions() (statemachine.LeaveReason, bool) {
	if t.policy == nil {
		return "", false
	}
	t.clock.SilenceDetectionActivated = t.policy.ShouldActivateSilenceDetection(t.joinedAt)
	return t.policy.Check(t.clock)
}

func (t *TeamsAdapter) GetParticipant(uuid string) (ParticipantInfo, bool) {
	return ParticipantInfo{}, false
}

func (t *TeamsAdapter) GetFirstBufferTimestampMs() (int64, bool) {
	if t.joinedAt.IsZero() {
		return 0, false
	}
	return t.joinedAt.UnixMilli(), true
}
