package supervisor

import (
	"context"

	"github.com/meetbot/core/internal/adapter"
	"github.com/meetbot/core/internal/statemachine"
	"github.com/meetbot/core/internal/store"
)

// handleAdapterMessage is take_action_based_on_message_from_adapter's
// dispatch table: most message kinds map to a single fixed event via
// statemachine.TransitionForMessageKind; a handful need extra handling
// (the leave reason carried on ADAPTER_REQUESTED_BOT_LEAVE_MEETING, the
// MEETING_ENDED branch on current state, and READY_TO_SHOW_BOT_IMAGE's
// media-request side effect instead of an event).
func (s *Supervisor) handleAdapterMessage(ctx context.Context, msg adapter.AdapterMessage) {
	switch msg.Kind {
	case statemachine.MsgReadyToShowBotImage:
		s.takeActionBasedOnImageMediaRequests(ctx)
		return

	case statemachine.MsgAdapterRequestedLeaveMeeting:
		reason, _ := msg.Metadata["leave_reason"].(string)
		if _, err := s.deps.Events.CreateEvent(ctx, s.bot.ID, statemachine.EventLeaveRequested,
			statemachine.LeaveReasonSubType(statemachine.LeaveReason(reason)), nil); err != nil {
			s.logger.Warnw("create leave-requested event failed", "error", err, "reason", reason)
		}
		if err := s.adapter.Leave(ctx); err != nil {
			s.logger.Warnw("adapter leave failed", "error", err)
		}
		return

	case statemachine.MsgMeetingEnded:
		s.handleMeetingEnded(ctx)
		return
	}

	eventType, subType, ok := statemachine.TransitionForMessageKind(msg.Kind)
	if !ok {
		s.logger.Warnw("received unexpected message from adapter", "kind", msg.Kind)
		return
	}

	if _, err := s.deps.Events.CreateEvent(ctx, s.bot.ID, eventType, subType, msg.Metadata); err != nil {
		s.logger.Warnw("create event from adapter message failed", "error", err, "kind", msg.Kind)
		return
	}

	if eventType == statemachine.EventCouldNotJoin || eventType == statemachine.EventFatalError {
		s.Cleanup(ctx)
		return
	}
	if msg.Kind == statemachine.MsgBotLeftMeeting {
		s.Cleanup(ctx)
	}
}

// handleMeetingEnded mirrors the MEETING_ENDED branch: flush any
// in-flight captions/utterances, record BOT_LEFT_MEETING if the bot had
// already been asked to leave or MEETING_ENDED otherwise, then clean up.
func (s *Supervisor) handleMeetingEnded(ctx context.Context) {
	if s.captions != nil {
		s.captions.Flush()
	}
	s.flushAllParticipantBuffers(ctx)

	state, err := s.deps.Events.CurrentState(ctx, s.bot.ID)
	if err != nil {
		s.logger.Warnw("failed to load bot state for meeting-ended dispatch", "error", err)
		state = ""
	}

	eventType := statemachine.EventMeetingEnded
	if state == store.StateLeaving {
		eventType = statemachine.EventBotLeftMeeting
	}
	if _, err := s.deps.Events.CreateEvent(ctx, s.bot.ID, eventType, "", nil); err != nil {
		s.logger.Warnw("create meeting-ended event failed", "error", err)
	}
	s.Cleanup(ctx)
}

// handleParticipantAudio routes one speaker's raw PCM chunk either to the
// realtime streaming transcriber pool (when configured) or to the
// per-participant batching buffer that periodically flushes as Utterance
// rows (individual_audio_input_manager.py's two ingestion modes).
func (s *Supervisor) handleParticipantAudio(ctx context.Context, participantID string, tsMs int64, pcm []byte) {
	if s.streaming != nil {
		if err := s.streaming.AddChunk(participantID, pcm); err != nil {
			s.logger.Warnw("streaming transcriber send failed", "participant", participantID, "error", err)
		}
		return
	}
	s.bufferParticipantAudio(ctx, participantID, pcm)
}
