// Package autoleave implements the time- and silence-based conditions that
// request a meeting leave (spec.md §4.4), grounded on
// original_source/bots/automatic_leave_configuration.py for the default
// values and original_source/bots/bot_controller/automatic_leave_configuration.py
// for the per-bot settings indirection.
package autoleave

import (
	"time"

	"github.com/meetbot/core/internal/statemachine"
)

// Config mirrors AutomaticLeaveConfiguration's fields and defaults exactly.
type Config struct {
	SilenceTimeoutSeconds               int
	SilenceActivateAfterSeconds         int
	OnlyParticipantInMeetingTimeoutSecs int
	WaitForHostToStartMeetingTimeoutSecs int
	WaitingRoomTimeoutSeconds           int
	MaxUptimeSeconds                    *int // nil == unbounded
}

// DefaultConfig returns the spec.md §4.4 defaults.
func DefaultConfig() Config {
	return Config{
		SilenceTimeoutSeconds:                600,
		SilenceActivateAfterSeconds:          1200,
		OnlyParticipantInMeetingTimeoutSecs:  60,
		WaitForHostToStartMeetingTimeoutSecs: 600,
		WaitingRoomTimeoutSeconds:            900,
		MaxUptimeSeconds:                     nil,
	}
}

// FromBotSettings layers per-bot overrides from the bot's
// automatic_leave_configuration settings onto DefaultConfig, mirroring
// bot_controller/automatic_leave_configuration.py's per-bot settings
// indirection. Any field absent or of the wrong type keeps its default.
func FromBotSettings(settings map[string]interface{}) Config {
	cfg := DefaultConfig()
	raw, ok := settings["automatic_leave_configuration"].(map[string]interface{})
	if !ok {
		return cfg
	}

	if v, ok := intFromAny(raw["silence_timeout_seconds"]); ok {
		cfg.SilenceTimeoutSeconds = v
	}
	if v, ok := intFromAny(raw["silence_activate_after_seconds"]); ok {
		cfg.SilenceActivateAfterSeconds = v
	}
	if v, ok := intFromAny(raw["only_participant_in_meeting_timeout_seconds"]); ok {
		cfg.OnlyParticipantInMeetingTimeoutSecs = v
	}
	if v, ok := intFromAny(raw["wait_for_host_to_start_meeting_timeout_seconds"]); ok {
		cfg.WaitForHostToStartMeetingTimeoutSecs = v
	}
	if v, ok := intFromAny(raw["waiting_room_timeout_seconds"]); ok {
		cfg.WaitingRoomTimeoutSeconds = v
	}
	if v, ok := intFromAny(raw["max_uptime_seconds"]); ok {
		cfg.MaxUptimeSeconds = &v
	}
	return cfg
}

// intFromAny narrows a decoded-JSON value (float64 from encoding/json, or
// an int from a hand-built map) to an int.
func intFromAny(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// AdapterClock carries the timestamps the Adapter tracks per spec.md §4.4.
type AdapterClock struct {
	JoinedAt                  time.Time
	OnlyOneParticipantSince   *time.Time
	LastAudioReceivedAt       *time.Time
	SilenceDetectionActivated bool
	WaitingRoomSince          *time.Time
	AwaitingHostSince         *time.Time
}

// Policy evaluates the auto-leave conditions. now is injectable for tests.
type Policy struct {
	Config Config
	Now    func() time.Time
}

// NewPolicy builds a Policy with time.Now as the clock.
func NewPolicy(cfg Config) *Policy {
	return &Policy{Config: cfg, Now: time.Now}
}

// Check evaluates check_auto_leave_conditions() for one tick (spec.md
// §4.4). It returns the first condition that fires, in the priority order
// the source evaluates them: silence, only-participant, waiting-room
// timeout, max-uptime. WaitForHostToStartMeetingTimeoutSecs is not
// evaluated here.
func (p *Policy) Check(clock AdapterClock) (statemachine.LeaveReason, bool) {
	now := p.Now()

	if clock.SilenceDetectionActivated && clock.LastAudioReceivedAt != nil {
		if now.Sub(*clock.LastAudioReceivedAt) >= time.Duration(p.Config.SilenceTimeoutSeconds)*time.Second {
			return statemachine.LeaveReasonSilence, true
		}
	} else if !clock.JoinedAt.IsZero() {
		if now.Sub(clock.JoinedAt) >= time.Duration(p.Config.SilenceActivateAfterSeconds)*time.Second {
			clock.SilenceDetectionActivated = true
		}
	}

	if clock.OnlyOneParticipantSince != nil {
		if now.Sub(*clock.OnlyOneParticipantSince) >= time.Duration(p.Config.OnlyParticipantInMeetingTimeoutSecs)*time.Second {
			return statemachine.LeaveReasonOnlyParticipant, true
		}
	}

	if clock.WaitingRoomSince != nil {
		if now.Sub(*clock.WaitingRoomSince) >= time.Duration(p.Config.WaitingRoomTimeoutSeconds)*time.Second {
			return statemachine.LeaveReasonWaitingRoomTimeout, true
		}
	}

	if p.Config.MaxUptimeSeconds != nil && !clock.JoinedAt.IsZero() {
		if now.Sub(clock.JoinedAt) >= time.Duration(*p.Config.MaxUptimeSeconds)*time.Second {
			return statemachine.LeaveReasonMaxUptime, true
		}
	}

	return "", false
}

// ShouldActivateSilenceDetection reports whether enough time has passed
// since join to arm silence detection (spec.md §4.4:
// "silence_activate_after_seconds — silence detection becomes armed this
// long after join").
func (p *Policy) ShouldActivateSilenceDetection(joinedAt time.Time) bool {
	if joinedAt.IsZero() {
		return false
	}
	return p.Now().Sub(joinedAt) >= time.Duration(p.Config.SilenceActivateAfterSeconds)*time.Second
}
