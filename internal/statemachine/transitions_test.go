package statemachine

import (
	"testing"

	"github.com/meetbot/core/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestTransition_HappyPath(t *testing.T) {
	cases := []struct {
		from    store.State
		evType  EventType
		subType EventSubType
		want    store.State
	}{
		{store.StateReady, EventJoinRequested, "", store.StateJoining},
		{store.StateScheduled, EventJoinRequested, "", store.StateJoining},
		{store.StateJoining, EventBotJoinedMeeting, "", store.StateJoinedNotRecording},
		{store.StateJoinedNotRecording, EventBotRecordingPermissionGranted, "", store.StateJoinedRecording},
		{store.StateJoinedRecording, EventLeaveRequested, "", store.StateLeaving},
		{store.StateJoinedRecording, EventMeetingEnded, "", store.StatePostProcessing},
		{store.StateLeaving, EventBotLeftMeeting, "", store.StatePostProcessing},
		{store.StatePostProcessing, EventPostProcessingCompleted, "", store.StateEnded},
		{store.StateJoining, EventCouldNotJoin, SubTypeCouldNotJoinMeetingNotStartedWaitingForHost, store.StateFatalError},
		{store.StateJoinedRecording, EventBotPutInWaitingRoom, "", store.StateWaitingRoom},
	}
	for _, c := range cases {
		got, ok := Transition(c.from, c.evType, c.subType)
		assert.True(t, ok, "expected transition for %+v", c)
		assert.Equal(t, c.want, got)
	}
}

func TestTransition_WildcardFatalError(t *testing.T) {
	for s := range nonTerminalStates {
		got, ok := Transition(s, EventFatalError, SubTypeProcessTerminated)
		assert.True(t, ok, "state %s should accept FATAL_ERROR", s)
		assert.Equal(t, store.StateFatalError, got)
	}
}

func TestTransition_InvalidReturnsFalse(t *testing.T) {
	_, ok := Transition(store.StateEnded, EventJoinRequested, "")
	assert.False(t, ok)

	_, ok = Transition(store.StateFatalError, EventFatalError, "")
	assert.False(t, ok, "fatal_error is terminal, not in nonTerminalStates")
}

func TestGuardPredicates(t *testing.T) {
	assert.True(t, IsStateThatCanPlayMedia(store.StateJoinedRecording))
	assert.False(t, IsStateThatCanPlayMedia(store.StateLeaving))

	assert.True(t, IsStateThatCanPauseRecording(store.StateJoinedRecording))
	assert.False(t, IsStateThatCanPauseRecording(store.StateJoinedRecordingPaused))

	assert.True(t, IsStateThatCanResumeRecording(store.StateJoinedRecordingPaused))
	assert.False(t, IsStateThatCanResumeRecording(store.StateJoinedRecording))

	assert.True(t, IsStateThatCanAdmitFromWaitingRoom(store.StateWaitingRoom))
	assert.False(t, IsStateThatCanAdmitFromWaitingRoom(store.StateJoinedRecording))
}
