package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/meetbot/core/internal/adapter"
	"github.com/meetbot/core/internal/statemachine"
	"github.com/meetbot/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHandleAdapterMessage_GenericEventAdvancesState exercises the default
// branch: a plain BOT_JOINED_MEETING message creates its mapped event
// without triggering cleanup.
func TestHandleAdapterMessage_GenericEventAdvancesState(t *testing.T) {
	conn := newTestDB(t)
	bot := newTestBot(t, conn)
	s := newTestSupervisor(t, conn, bot, time.Now())
	s.adapter = &fakeAdapter{}

	ctx := context.Background()
	_, err := s.deps.Events.CreateEvent(ctx, bot.ID, statemachine.EventJoinRequested, "", nil)
	require.NoError(t, err)

	s.handleAdapterMessage(ctx, adapter.AdapterMessage{Kind: statemachine.MsgBotJoinedMeeting})

	state, err := s.deps.Events.CurrentState(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StateJoinedNotRecording, state)
	assert.False(t, s.cleanupCalled)
}

// TestHandleAdapterMessage_CouldNotJoinTriggersCleanup exercises the
// fatal-kind branch: a message whose mapped event is a terminal
// could-not-join must run cleanup.
func TestHandleAdapterMessage_CouldNotJoinTriggersCleanup(t *testing.T) {
	conn := newTestDB(t)
	bot := newTestBot(t, conn)
	s := newTestSupervisor(t, conn, bot, time.Now())
	s.adapter = &fakeAdapter{}

	ctx := context.Background()
	_, err := s.deps.Events.CreateEvent(ctx, bot.ID, statemachine.EventJoinRequested, "", nil)
	require.NoError(t, err)

	s.handleAdapterMessage(ctx, adapter.AdapterMessage{Kind: statemachine.MsgMeetingNotFound})

	require.True(t, s.cleanupCalled)
	<-s.cleanupDone
}

// TestHandleAdapterMessage_RequestedLeaveCarriesReason exercises the
// ADAPTER_REQUESTED_BOT_LEAVE_MEETING special case: the leave reason
// travels through message metadata into the created event's sub-type, and
// the adapter's Leave is invoked.
func TestHandleAdapterMessage_RequestedLeaveCarriesReason(t *testing.T) {
	conn := newTestDB(t)
	bot := newTestBot(t, conn)
	s := newTestSupervisor(t, conn, bot, time.Now())
	fa := &fakeAdapter{}
	s.adapter = fa

	ctx := context.Background()
	_, err := s.deps.Events.CreateEvent(ctx, bot.ID, statemachine.EventJoinRequested, "", nil)
	require.NoError(t, err)
	_, err = s.deps.Events.CreateEvent(ctx, bot.ID, statemachine.EventBotJoinedMeeting, "", nil)
	require.NoError(t, err)

	s.handleAdapterMessage(ctx, adapter.AdapterMessage{
		Kind:     statemachine.MsgAdapterRequestedLeaveMeeting,
		Metadata: map[string]any{"leave_reason": string(statemachine.LeaveReasonSilence)},
	})

	assert.True(t, fa.leaveCalled)

	var events []store.BotEvent
	require.NoError(t, conn.db.Where("bot_id = ? AND event_type = ?", bot.ID, string(statemachine.EventLeaveRequested)).Find(&events).Error)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].EventSubType)
	assert.Equal(t, string(statemachine.LeaveReasonSubType(statemachine.LeaveReasonSilence)), *events[0].EventSubType)
}

// TestHandleMeetingEnded_DuringLeavingRecordsBotLeftMeeting exercises the
// state-dependent branch: MEETING_ENDED arriving while the bot was already
// in the middle of leaving must record BOT_LEFT_MEETING, not MEETING_ENDED,
// and cleanup's teardown must carry the bot all the way to POST_PROCESSING_COMPLETED/ended.
func TestHandleMeetingEnded_DuringLeavingRecordsBotLeftMeeting(t *testing.T) {
	conn := newTestDB(t)
	bot := newTestBot(t, conn)
	s := newTestSupervisor(t, conn, bot, time.Now())
	s.adapter = &fakeAdapter{}

	ctx := context.Background()
	for _, step := range []statemachine.EventType{
		statemachine.EventJoinRequested,
		statemachine.EventBotJoinedMeeting,
		statemachine.EventLeaveRequested,
	} {
		_, err := s.deps.Events.CreateEvent(ctx, bot.ID, step, "", nil)
		require.NoError(t, err)
	}
	state, err := s.deps.Events.CurrentState(ctx, bot.ID)
	require.NoError(t, err)
	require.Equal(t, store.StateLeaving, state)

	s.handleMeetingEnded(ctx)
	<-s.cleanupDone

	var events []store.BotEvent
	require.NoError(t, conn.db.Where("bot_id = ?", bot.ID).Order("created_at asc, id asc").Find(&events).Error)
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, string(statemachine.EventBotLeftMeeting), events[len(events)-2].EventType)
	last := events[len(events)-1]
	assert.Equal(t, string(statemachine.EventPostProcessingCompleted), last.EventType)

	finalState, err := s.deps.Events.CurrentState(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StateEnded, finalState)
}

// TestHandleMeetingEnded_WhileJoinedRecordsMeetingEnded covers the other
// branch: MEETING_ENDED without a prior leave request records MEETING_ENDED,
// and cleanup's teardown must still carry the bot to POST_PROCESSING_COMPLETED/ended.
func TestHandleMeetingEnded_WhileJoinedRecordsMeetingEnded(t *testing.T) {
	conn := newTestDB(t)
	bot := newTestBot(t, conn)
	s := newTestSupervisor(t, conn, bot, time.Now())
	s.adapter = &fakeAdapter{}

	ctx := context.Background()
	for _, step := range []statemachine.EventType{
		statemachine.EventJoinRequested,
		statemachine.EventBotJoinedMeeting,
	} {
		_, err := s.deps.Events.CreateEvent(ctx, bot.ID, step, "", nil)
		require.NoError(t, err)
	}

	s.handleMeetingEnded(ctx)
	<-s.cleanupDone

	var events []store.BotEvent
	require.NoError(t, conn.db.Where("bot_id = ?", bot.ID).Order("created_at asc, id asc").Find(&events).Error)
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, string(statemachine.EventMeetingEnded), events[len(events)-2].EventType)
	last := events[len(events)-1]
	assert.Equal(t, string(statemachine.EventPostProcessingCompleted), last.EventType)

	finalState, err := s.deps.Events.CurrentState(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StateEnded, finalState)
}

// TestHandleParticipantAudio_RoutesToBufferWhenNoStreaming confirms that
// without a streaming transcriber configured, raw audio lands in the
// per-participant batching buffer rather than being dropped.
func TestHandleParticipantAudio_RoutesToBufferWhenNoStreaming(t *testing.T) {
	conn := newTestDB(t)
	bot := newTestBot(t, conn)
	s := newTestSupervisor(t, conn, bot, time.Now())

	ctx := context.Background()
	s.handleParticipantAudio(ctx, "participant-1", 0, []byte{1, 2, 3, 4})

	s.ingestMu.Lock()
	buf, ok := s.ingest["participant-1"]
	s.ingestMu.Unlock()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.pcm)
}
