package supervisor

import (
	"context"

	"github.com/meetbot/core/internal/store"
)

// takeActionBasedOnAudioMediaRequests mirrors
// take_action_based_on_audio_media_requests_in_db: only one audio/TTS
// request plays at a time, oldest enqueued first.
func (s *Supervisor) takeActionBasedOnAudioMediaRequests(ctx context.Context) {
	if s.audioOutput == nil || s.audioOutput.Current() != nil {
		return
	}

	var req store.MediaRequest
	err := s.deps.DB.DB(ctx).
		Where("bot_id = ? AND state = ? AND type IN ?", s.bot.ID, store.MediaRequestEnqueued,
			[]store.MediaRequestType{store.MediaRequestAudio, store.MediaRequestTTS}).
		Order("created_at ASC").First(&req).Error
	if err != nil {
		return
	}

	if err := s.audioOutput.StartPlaying(ctx, &req); err != nil {
		s.logger.Warnw("audio media request failed to start", "request_id", req.ID, "error", err)
		s.setMediaRequestState(ctx, req.ID, store.MediaRequestFailedToPlay)
		return
	}
	s.setMediaRequestState(ctx, req.ID, store.MediaRequestPlaying)
}

// takeActionBasedOnImageMediaRequests mirrors
// take_action_based_on_image_media_requests_in_db: the most recently
// created enqueued image request wins and plays immediately (images show
// instantly rather than queueing); every other enqueued image request is
// dropped.
func (s *Supervisor) takeActionBasedOnImageMediaRequests(ctx context.Context) {
	var reqs []store.MediaRequest
	if err := s.deps.DB.DB(ctx).
		Where("bot_id = ? AND state = ? AND type = ?", s.bot.ID, store.MediaRequestEnqueued, store.MediaRequestImage).
		Order("created_at DESC").Find(&reqs).Error; err != nil || len(reqs) == 0 {
		return
	}

	winner := reqs[0]
	if err := s.adapter.SendRawImage(winner.MediaBlob); err != nil {
		s.logger.Warnw("image media request failed to send", "request_id", winner.ID, "error", err)
		s.setMediaRequestState(ctx, winner.ID, store.MediaRequestFailedToPlay)
	} else {
		s.setMediaRequestState(ctx, winner.ID, store.MediaRequestFinished)
	}

	for _, dropped := range reqs[1:] {
		s.setMediaRequestState(ctx, dropped.ID, store.MediaRequestDropped)
	}
}

// takeActionBasedOnMediaRequests mirrors
// take_action_based_on_media_requests_in_db.
func (s *Supervisor) takeActionBasedOnMediaRequests(ctx context.Context) {
	s.takeActionBasedOnAudioMediaRequests(ctx)
	s.takeActionBasedOnImageMediaRequests(ctx)
}

func (s *Supervisor) setMediaRequestState(ctx context.Context, id uint64, state store.MediaRequestState) {
	if err := s.deps.DB.DB(ctx).Model(&store.MediaRequest{}).Where("id = ?", id).Update("state", state).Error; err != nil {
		s.logger.Warnw("update media request state failed", "request_id", id, "state", state, "error", err)
	}
}

// mediaRequestFinished is audio_output_manager's
// currently_playing_audio_media_request_finished callback: mark the
// request finished, then immediately check whether another is queued.
func (s *Supervisor) mediaRequestFinished(ctx context.Context, req *store.MediaRequest) {
	s.setMediaRequestState(ctx, req.ID, store.MediaRequestFinished)
	s.takeActionBasedOnAudioMediaRequests(ctx)
}

// bufferParticipantAudio accumulates one speaker's PCM until it is long
// enough to flush as an Utterance (save_individual_audio_utterance's
// batched, non-realtime path).
func (s *Supervisor) bufferParticipantAudio(ctx context.Context, participantID string, pcm []byte) {
	s.ingestMu.Lock()
	buf, ok := s.ingest[participantID]
	if !ok {
		buf = &participantBuffer{startedAt: s.deps.Now()}
		s.ingest[participantID] = buf
	}
	buf.pcm = append(buf.pcm, pcm...)
	shouldFlush := s.deps.Now().Sub(buf.startedAt) >= flushThreshold
	s.ingestMu.Unlock()

	if shouldFlush {
		s.flushParticipantBuffer(ctx, participantID)
	}
}

// flushStaleParticipantBuffers is the per-tick sweep that flushes any
// buffer that has been accumulating longer than flushThreshold even if no
// new audio arrived to trigger the flush inline.
func (s *Supervisor) flushStaleParticipantBuffers(ctx context.Context) {
	s.ingestMu.Lock()
	var stale []string
	now := s.deps.Now()
	for id, buf := range s.ingest {
		if len(buf.pcm) > 0 && now.Sub(buf.startedAt) >= flushThreshold {
			stale = append(stale, id)
		}
	}
	s.ingestMu.Unlock()

	for _, id := range stale {
		s.flushParticipantBuffer(ctx, id)
	}
}

// flushAllParticipantBuffers drains every buffer regardless of age, for
// use at meeting-end / cleanup.
func (s *Supervisor) flushAllParticipantBuffers(ctx context.Context) {
	s.ingestMu.Lock()
	ids := make([]string, 0, len(s.ingest))
	for id := range s.ingest {
		ids = append(ids, id)
	}
	s.ingestMu.Unlock()

	for _, id := range ids {
		s.flushParticipantBuffer(ctx, id)
	}
}

func (s *Supervisor) flushParticipantBuffer(ctx context.Context, participantID string) {
	s.ingestMu.Lock()
	buf, ok := s.ingest[participantID]
	if !ok || len(buf.pcm) == 0 {
		s.ingestMu.Unlock()
		return
	}
	pcm := buf.pcm
	startedAt := buf.startedAt
	delete(s.ingest, participantID)
	s.ingestMu.Unlock()

	participant, err := s.getOrCreateParticipant(ctx, participantID)
	if err != nil {
		s.logger.Warnw("get or create participant failed", "participant", participantID, "error", err)
		return
	}
	if s.recording == nil {
		return
	}

	const sampleRate = 32000
	numSamples := int64(len(pcm) / 2)
	u := &store.Utterance{
		RecordingID:   s.recording.ID,
		ParticipantID: participant.ID,
		Source:        store.UtteranceSourcePerParticipantAudio,
		AudioBlob:     pcm,
		AudioFormat:   "s16le",
		SampleRate:    sampleRate,
		StartOffsetMs: startedAt.UnixMilli(),
		DurationMs:    numSamples * 1000 / sampleRate,
	}
	if err := s.deps.DB.DB(ctx).Create(u).Error; err != nil {
		s.logger.Warnw("save individual audio utterance failed", "participant", participantID, "error", err)
		return
	}

	s.transcribeUtterance(u)
}

// transcribeUtterance runs the configured non-realtime transcription
// Worker over u's audio in the background and persists the result, per
// spec.md §4.11 ("for each new Utterance with audio: take the PCM, call
// the configured provider... apply bounded retry"). It is a no-op when
// transcription isn't configured for non-realtime operation.
func (s *Supervisor) transcribeUtterance(u *store.Utterance) {
	if s.deps.TranscriptionWorker == nil || s.recording == nil {
		return
	}
	if s.recording.TranscriptionType != store.TranscriptionTypeNonRealtime {
		return
	}

	go func() {
		transcriptionJSON, failureJSON, err := s.deps.TranscriptionWorker.Run(context.Background(), u)
		updates := map[string]any{}
		if err != nil {
			s.logger.Warnw("non-realtime transcription failed", "utteranceId", u.ID, "error", err)
			updates["failure_data"] = failureJSON
		} else {
			updates["transcription"] = transcriptionJSON
		}
		if updErr := s.deps.DB.DB(context.Background()).Model(&store.Utterance{}).Where("id = ?", u.ID).Updates(updates).Error; updErr != nil {
			s.logger.Warnw("save utterance transcription result failed", "utteranceId", u.ID, "error", updErr)
		}
	}()
}

func (s *Supervisor) getOrCreateParticipant(ctx context.Context, uuid string) (*store.Participant, error) {
	var p store.Participant
	err := s.deps.DB.DB(ctx).Where("bot_id = ? AND uuid = ?", s.bot.ID, uuid).First(&p).Error
	if err == nil {
		return &p, nil
	}

	info, found := s.adapter.GetParticipant(uuid)
	p = store.Participant{BotID: s.bot.ID, UUID: uuid}
	if found {
		p.DisplayName = info.DisplayName
		if info.UserUUID != "" {
			p.UserUUID = &info.UserUUID
		}
	}
	if err := s.deps.DB.DB(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
