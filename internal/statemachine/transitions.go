package statemachine

import "github.com/meetbot/core/internal/store"

// transitionKey identifies one row of the transition table. SubType is
// empty for events that don't carry one. The table has no wildcard key:
// the "any non-terminal state -> FATAL_ERROR -> fatal_error" rule
// (spec.md §4.1) is applied in Transition via nonTerminalStates.
type transitionKey struct {
	From    store.State
	Type    EventType
	SubType EventSubType
}

// transitions is the authoritative table from spec.md §4.1, extended with
// the pause/resume, waiting-room-admission, and data-deletion rows needed
// to make every state in the enumeration reachable and leavable.
var transitions = map[transitionKey]store.State{
	{store.StateReady, EventJoinRequested, ""}:     store.StateJoining,
	{store.StateScheduled, EventJoinRequested, ""}: store.StateJoining,

	{store.StateJoining, EventBotJoinedMeeting, ""}: store.StateJoinedNotRecording,

	{store.StateJoinedNotRecording, EventBotRecordingPermissionGranted, ""}: store.StateJoinedRecording,

	{store.StateJoinedRecording, EventLeaveRequested, ""}:       store.StateLeaving,
	{store.StateJoinedNotRecording, EventLeaveRequested, ""}:    store.StateLeaving,
	{store.StateJoinedRecordingPaused, EventLeaveRequested, ""}: store.StateLeaving,
	{store.StateWaitingRoom, EventLeaveRequested, ""}:           store.StateLeaving,

	{store.StateJoinedRecording, EventMeetingEnded, ""}:       store.StatePostProcessing,
	{store.StateJoinedNotRecording, EventMeetingEnded, ""}:    store.StatePostProcessing,
	{store.StateJoinedRecordingPaused, EventMeetingEnded, ""}: store.StatePostProcessing,
	{store.StateWaitingRoom, EventMeetingEnded, ""}:           store.StatePostProcessing,

	{store.StateLeaving, EventBotLeftMeeting, ""}: store.StatePostProcessing,

	{store.StatePostProcessing, EventPostProcessingCompleted, ""}: store.StateEnded,

	{store.StateJoining, EventCouldNotJoin, SubTypeRequestToJoinDenied}:                         store.StateFatalError,
	{store.StateJoining, EventCouldNotJoin, SubTypeMeetingNotFound}:                             store.StateFatalError,
	{store.StateJoining, EventCouldNotJoin, SubTypeCouldNotJoinMeetingNotStartedWaitingForHost}:  store.StateFatalError,
	{store.StateJoining, EventCouldNotJoin, SubTypeZoomAuthorizationFailed}:                      store.StateFatalError,
	{store.StateJoining, EventCouldNotJoin, SubTypeZoomSDKInternalError}:                         store.StateFatalError,
	{store.StateJoining, EventCouldNotJoin, SubTypeZoomMeetingStatusFailed}:                      store.StateFatalError,
	{store.StateJoining, EventCouldNotJoin, SubTypeZoomMeetingStatusFailedUnableToJoinExternal}:   store.StateFatalError,

	{store.StateJoinedRecording, EventBotPutInWaitingRoom, ""}:    store.StateWaitingRoom,
	{store.StateJoinedNotRecording, EventBotPutInWaitingRoom, ""}: store.StateWaitingRoom,

	{store.StateWaitingRoom, EventBotAdmittedFromWaitingRoom, ""}: store.StateJoinedNotRecording,

	{store.StateJoinedRecording, EventRecordingPaused, ""}:       store.StateJoinedRecordingPaused,
	{store.StateJoinedRecordingPaused, EventRecordingResumed, ""}: store.StateJoinedRecording,

	{store.StateEnded, EventDataDeletionRequested, ""}:      store.StateDataDeleted,
	{store.StateFatalError, EventDataDeletionRequested, ""}: store.StateDataDeleted,
}

// nonTerminalStates backs the wildcard FATAL_ERROR row: any non-terminal
// state can transition to fatal_error.
var nonTerminalStates = map[store.State]bool{
	store.StateScheduled:             true,
	store.StateReady:                 true,
	store.StateJoining:               true,
	store.StateJoinedNotRecording:    true,
	store.StateJoinedRecording:       true,
	store.StateJoinedRecordingPaused: true,
	store.StateLeaving:               true,
	store.StatePostProcessing:        true,
	store.StateWaitingRoom:           true,
}

// Transition looks up the resulting state for (from, eventType, subType). It
// first tries an exact sub-type match, then a bare-sub-type-less match (for
// events that don't branch on sub-type), then — for FATAL_ERROR only — the
// "any non-terminal state" wildcard rule.
func Transition(from store.State, eventType EventType, subType EventSubType) (store.State, bool) {
	if to, ok := transitions[transitionKey{from, eventType, subType}]; ok {
		return to, true
	}
	if subType != "" {
		if to, ok := transitions[transitionKey{from, eventType, ""}]; ok {
			return to, true
		}
	}
	if eventType == EventFatalError && nonTerminalStates[from] {
		return store.StateFatalError, true
	}
	return "", false
}

// --- Guard predicates (spec.md §4.1) ---

var canPlayMedia = map[store.State]bool{
	store.StateJoinedNotRecording: true,
	store.StateJoinedRecording:    true,
	store.StateJoinedRecordingPaused: true,
}

var canPauseRecording = map[store.State]bool{
	store.StateJoinedRecording: true,
}

var canResumeRecording = map[store.State]bool{
	store.StateJoinedRecordingPaused: true,
}

var canAdmitFromWaitingRoom = map[store.State]bool{
	store.StateWaitingRoom: true,
}

func IsStateThatCanPlayMedia(s store.State) bool             { return canPlayMedia[s] }
func IsStateThatCanPauseRecording(s store.State) bool         { return canPauseRecording[s] }
func IsStateThatCanResumeRecording(s store.State) bool        { return canResumeRecording[s] }
func IsStateThatCanAdmitFromWaitingRoom(s store.State) bool   { return canAdmitFromWaitingRoom[s] }
