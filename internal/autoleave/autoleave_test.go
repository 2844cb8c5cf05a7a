package autoleave

import (
	"testing"
	"time"

	"github.com/meetbot/core/internal/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCheck_SilenceTriggersLeave exercises scenario C from spec.md §8: join,
// one audio chunk, then advance the clock past
// silence_activate_after_seconds + silence_timeout_seconds.
func TestCheck_SilenceTriggersLeave(t *testing.T) {
	cfg := Config{SilenceActivateAfterSeconds: 2, SilenceTimeoutSeconds: 3}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Policy{Config: cfg, Now: func() time.Time { return now }}

	joinedAt := now
	lastAudio := now

	clock := AdapterClock{JoinedAt: joinedAt, LastAudioReceivedAt: &lastAudio}
	_, fired := p.Check(clock)
	assert.False(t, fired, "should not fire immediately after join")

	now = joinedAt.Add(time.Duration(cfg.SilenceActivateAfterSeconds+cfg.SilenceTimeoutSeconds+1) * time.Second)
	clock.SilenceDetectionActivated = p.ShouldActivateSilenceDetection(joinedAt)
	reason, fired := p.Check(clock)
	assert.True(t, fired)
	assert.Equal(t, statemachine.LeaveReasonSilence, reason)
}

func TestCheck_OnlyParticipantTimeout(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()
	p := &Policy{Config: cfg, Now: func() time.Time { return now }}

	since := now.Add(-time.Duration(cfg.OnlyParticipantInMeetingTimeoutSecs+1) * time.Second)
	clock := AdapterClock{JoinedAt: now, OnlyOneParticipantSince: &since}

	reason, fired := p.Check(clock)
	assert.True(t, fired)
	assert.Equal(t, statemachine.LeaveReasonOnlyParticipant, reason)
}

func TestCheck_NoConditionsNoLeave(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	clock := AdapterClock{JoinedAt: time.Now()}
	_, fired := p.Check(clock)
	assert.False(t, fired)
}

// TestFromBotSettings_OverridesOnlyProvidedFields confirms a per-bot
// automatic_leave_configuration sub-map overrides just the fields it names,
// leaving the rest at DefaultConfig, and that max_uptime_seconds switches
// MaxUptimeSeconds from unbounded to a set value.
func TestFromBotSettings_OverridesOnlyProvidedFields(t *testing.T) {
	settings := map[string]interface{}{
		"automatic_leave_configuration": map[string]interface{}{
			"silence_timeout_seconds": float64(120),
			"max_uptime_seconds":      float64(3600),
		},
	}

	cfg := FromBotSettings(settings)
	def := DefaultConfig()

	assert.Equal(t, 120, cfg.SilenceTimeoutSeconds)
	assert.Equal(t, def.SilenceActivateAfterSeconds, cfg.SilenceActivateAfterSeconds)
	assert.Equal(t, def.OnlyParticipantInMeetingTimeoutSecs, cfg.OnlyParticipantInMeetingTimeoutSecs)
	require.NotNil(t, cfg.MaxUptimeSeconds)
	assert.Equal(t, 3600, *cfg.MaxUptimeSeconds)
}

// TestFromBotSettings_MissingKeyReturnsDefaults confirms bots without an
// automatic_leave_configuration setting get exactly DefaultConfig.
func TestFromBotSettings_MissingKeyReturnsDefaults(t *testing.T) {
	cfg := FromBotSettings(map[string]interface{}{})
	assert.Equal(t, DefaultConfig(), cfg)
}
