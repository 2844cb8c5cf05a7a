// Package statemachine implements the bot lifecycle state machine and its
// append-only Event Store (spec.md §4.1). It is the single place that is
// allowed to move a Bot between states — every other package asks it to
// record an event and never writes bot.State directly.
package statemachine

// EventType is the required discriminator of every BotEvent (spec.md §4.1).
type EventType string

const (
	EventJoinRequested                EventType = "JOIN_REQUESTED"
	EventBotJoinedMeeting             EventType = "BOT_JOINED_MEETING"
	EventBotRecordingPermissionGranted EventType = "BOT_RECORDING_PERMISSION_GRANTED"
	EventBotPutInWaitingRoom          EventType = "BOT_PUT_IN_WAITING_ROOM"
	EventBotAdmittedFromWaitingRoom   EventType = "BOT_ADMITTED_FROM_WAITING_ROOM"
	EventLeaveRequested               EventType = "LEAVE_REQUESTED"
	EventBotLeftMeeting               EventType = "BOT_LEFT_MEETING"
	EventMeetingEnded                 EventType = "MEETING_ENDED"
	EventPostProcessingCompleted      EventType = "POST_PROCESSING_COMPLETED"
	EventCouldNotJoin                 EventType = "COULD_NOT_JOIN"
	EventFatalError                   EventType = "FATAL_ERROR"
	EventRecordingPaused              EventType = "RECORDING_PAUSED"
	EventRecordingResumed             EventType = "RECORDING_RESUMED"
	EventDataDeletionRequested        EventType = "DATA_DELETION_REQUESTED"
)

// EventSubType narrows an EventType to a specific cause (spec.md §4.1, §7).
type EventSubType string

const (
	// COULD_NOT_JOIN sub-types.
	SubTypeRequestToJoinDenied                          EventSubType = "REQUEST_TO_JOIN_DENIED"
	SubTypeMeetingNotFound                              EventSubType = "MEETING_NOT_FOUND"
	SubTypeCouldNotJoinMeetingNotStartedWaitingForHost  EventSubType = "COULD_NOT_JOIN_MEETING_NOT_STARTED_WAITING_FOR_HOST"
	SubTypeZoomAuthorizationFailed                      EventSubType = "ZOOM_AUTHORIZATION_FAILED"
	SubTypeZoomSDKInternalError                         EventSubType = "ZOOM_SDK_INTERNAL_ERROR"
	SubTypeZoomMeetingStatusFailed                       EventSubType = "ZOOM_MEETING_STATUS_FAILED"
	SubTypeZoomMeetingStatusFailedUnableToJoinExternal   EventSubType = "ZOOM_MEETING_STATUS_FAILED_UNABLE_TO_JOIN_EXTERNAL_MEETING"

	// FATAL_ERROR sub-types.
	SubTypeProcessTerminated   EventSubType = "PROCESS_TERMINATED"
	SubTypeRTMPConnectionFailed EventSubType = "FATAL_ERROR_RTMP_CONNECTION_FAILED"
	SubTypeUIElementNotFound   EventSubType = "UI_ELEMENT_NOT_FOUND"

	// LEAVE_REQUESTED sub-types.
	SubTypeAutoLeaveSilence             EventSubType = "AUTO_LEAVE_SILENCE"
	SubTypeAutoLeaveOnlyParticipant     EventSubType = "AUTO_LEAVE_ONLY_PARTICIPANT_IN_MEETING"
	SubTypeAutoLeaveMaxUptime           EventSubType = "AUTO_LEAVE_MAX_UPTIME"
	SubTypeAutoLeaveWaitingRoomTimeout  EventSubType = "AUTO_LEAVE_WAITING_ROOM_TIMEOUT"
	SubTypeUserRequestedLeave           EventSubType = "USER_REQUESTED"
)

// AdapterMessageKind enumerates the message kinds an Adapter can send into
// the Supervisor's loop (spec.md §4.2). Each maps to a fixed
// (EventType, EventSubType) pair via TransitionForMessageKind.
type AdapterMessageKind string

const (
	MsgBotJoinedMeeting              AdapterMessageKind = "BOT_JOINED_MEETING"
	MsgBotRecordingPermissionGranted AdapterMessageKind = "BOT_RECORDING_PERMISSION_GRANTED"
	MsgBotPutInWaitingRoom           AdapterMessageKind = "BOT_PUT_IN_WAITING_ROOM"
	MsgMeetingEnded                  AdapterMessageKind = "MEETING_ENDED"
	MsgRequestToJoinDenied           AdapterMessageKind = "REQUEST_TO_JOIN_DENIED"
	MsgMeetingNotFound               AdapterMessageKind = "MEETING_NOT_FOUND"
	MsgUIElementNotFound             AdapterMessageKind = "UI_ELEMENT_NOT_FOUND"
	MsgAdapterRequestedLeaveMeeting  AdapterMessageKind = "ADAPTER_REQUESTED_BOT_LEAVE_MEETING"
	MsgZoomAuthorizationFailed       AdapterMessageKind = "ZOOM_AUTHORIZATION_FAILED"
	MsgZoomSDKInternalError          AdapterMessageKind = "ZOOM_SDK_INTERNAL_ERROR"
	MsgZoomMeetingStatusFailed       AdapterMessageKind = "ZOOM_MEETING_STATUS_FAILED"
	MsgZoomMeetingStatusFailedUnableToJoinExternal AdapterMessageKind = "ZOOM_MEETING_STATUS_FAILED_UNABLE_TO_JOIN_EXTERNAL_MEETING"
	MsgLeaveMeetingWaitingForHost    AdapterMessageKind = "LEAVE_MEETING_WAITING_FOR_HOST"
	MsgReadyToShowBotImage           AdapterMessageKind = "READY_TO_SHOW_BOT_IMAGE"
	MsgBotLeftMeeting                AdapterMessageKind = "BOT_LEFT_MEETING"
)

// messageTransition is a fixed (event_type, event_sub_type) pair.
type messageTransition struct {
	EventType EventType
	SubType   EventSubType // empty means no sub-type
}

// messageKindTransitions is the fixed mapping from adapter message kind to
// event (spec.md §4.2: "Each kind maps to a fixed (event_type,
// event_sub_type) pair"). MsgAdapterRequestedLeaveMeeting is handled
// separately because its sub-type is carried in the message (the leave
// reason), not fixed here.
var messageKindTransitions = map[AdapterMessageKind]messageTransition{
	MsgBotJoinedMeeting:              {EventBotJoinedMeeting, ""},
	MsgBotRecordingPermissionGranted: {EventBotRecordingPermissionGranted, ""},
	MsgBotPutInWaitingRoom:           {EventBotPutInWaitingRoom, ""},
	MsgMeetingEnded:                  {EventMeetingEnded, ""},
	MsgBotLeftMeeting:                {EventBotLeftMeeting, ""},
	MsgRequestToJoinDenied:           {EventCouldNotJoin, SubTypeRequestToJoinDenied},
	MsgMeetingNotFound:               {EventCouldNotJoin, SubTypeMeetingNotFound},
	MsgUIElementNotFound:             {EventFatalError, SubTypeUIElementNotFound},
	MsgZoomAuthorizationFailed:       {EventCouldNotJoin, SubTypeZoomAuthorizationFailed},
	MsgZoomSDKInternalError:          {EventCouldNotJoin, SubTypeZoomSDKInternalError},
	MsgZoomMeetingStatusFailed:       {EventCouldNotJoin, SubTypeZoomMeetingStatusFailed},
	MsgZoomMeetingStatusFailedUnableToJoinExternal: {EventCouldNotJoin, SubTypeZoomMeetingStatusFailedUnableToJoinExternal},
	MsgLeaveMeetingWaitingForHost:    {EventCouldNotJoin, SubTypeCouldNotJoinMeetingNotStartedWaitingForHost},
}

// TransitionForMessageKind resolves the fixed event mapping for a message
// kind. ok is false for READY_TO_SHOW_BOT_IMAGE (informational, no state
// change) and for ADAPTER_REQUESTED_BOT_LEAVE_MEETING (sub-type carried by
// the caller, see LeaveReasonSubType).
func TransitionForMessageKind(kind AdapterMessageKind) (EventType, EventSubType, bool) {
	t, ok := messageKindTransitions[kind]
	return t.EventType, t.SubType, ok
}

// LeaveReason is why check_auto_leave_conditions or the adapter requested a
// leave (spec.md §4.4).
type LeaveReason string

const (
	LeaveReasonSilence           LeaveReason = "AUTO_LEAVE_SILENCE"
	LeaveReasonOnlyParticipant   LeaveReason = "AUTO_LEAVE_ONLY_PARTICIPANT_IN_MEETING"
	LeaveReasonMaxUptime         LeaveReason = "AUTO_LEAVE_MAX_UPTIME"
	LeaveReasonWaitingRoomTimeout LeaveReason = "AUTO_LEAVE_WAITING_ROOM_TIMEOUT"
	LeaveReasonUserRequested     LeaveReason = "USER_REQUESTED"
)

// LeaveReasonSubType maps a leave reason to the LEAVE_REQUESTED sub-type.
func LeaveReasonSubType(r LeaveReason) EventSubType {
	return EventSubType(r)
}

// IsTerminalEventType reports whether the event type, on success, always
// lands the bot in a terminal state — used only for documentation/tests;
// the authoritative check is store.State.IsTerminal() on the resulting
// state.
func IsTerminalEventType(t EventType) bool {
	return t == EventPostProcessingCompleted || t == EventFatalError || t == EventDataDeletionRequested ||
		t == EventCouldNotJoin
}
