package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meetbot/core/internal/adapter"
	"github.com/meetbot/core/internal/audioingest"
	"github.com/meetbot/core/internal/audiooutput"
	"github.com/meetbot/core/internal/autoleave"
	"github.com/meetbot/core/internal/captions"
	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/pipeline"
	"github.com/meetbot/core/internal/recorder"
	"github.com/meetbot/core/internal/redislistener"
	"github.com/meetbot/core/internal/rtmp"
	"github.com/meetbot/core/internal/statemachine"
	"github.com/meetbot/core/internal/store"
	"github.com/meetbot/core/internal/transcription"
	"github.com/meetbot/core/internal/uploader"
	"github.com/meetbot/core/internal/webhook"
	"github.com/meetbot/core/internal/wsstream"
	"gorm.io/gorm/clause"
)

// tickInterval mirrors on_main_loop_timeout's 100ms GLib.timeout_add.
const tickInterval = 100 * time.Millisecond

// Deps are the collaborators a Supervisor drives; everything platform- or
// SDK-specific lives behind the adapter.Adapter and Source interfaces so
// this package stays free of concrete media/transport concerns (spec.md
// §1 Non-goals).
type Deps struct {
	DB         store.PostgresConnector
	Logger     logging.Logger
	Events     *statemachine.EventStore
	Webhooks   *webhook.Dispatcher
	Uploader   uploader.Uploader
	RedisNew   func(botID string, handler redislistener.Handler) *redislistener.Listener
	AutoLeave  autoleave.Config
	AudioSrc   audiooutput.Source
	VoiceDet   audioingest.VoiceDetector
	Transcribe audioingest.TranscriberFactory
	// TranscriptionWorker runs non-realtime (offline) transcription over
	// each Utterance flushed from the per-participant audio buffer, when
	// TranscriptionType is TranscriptionTypeNonRealtime. Nil leaves
	// Utterance rows with empty Transcription/FailureData, matching a bot
	// with transcription enabled but no configured provider.
	TranscriptionWorker *transcription.Worker
	Now                 func() time.Time

	// CleanupWatchdogTimeout hard-bounds teardown (spec.md §9's cleanup
	// watchdog); zero selects a 10-minute default.
	CleanupWatchdogTimeout time.Duration
}

// Supervisor owns one bot's runtime for the lifetime of a botcontroller
// process: the Adapter, the media pipeline/recorder/rtmp/websocket egress
// selected by its PipelineConfiguration, and the cooperative event loop
// that serializes every message those collaborators post in from their own
// goroutines (spec.md §4.2/§9), grounded on
// original_source/bots/bot_controller/bot_controller.py's GLib main loop.
type Supervisor struct {
	bot    *store.Bot
	cfg    PipelineConfiguration
	deps   Deps
	logger logging.Logger

	meetingType adapter.MeetingType
	adapter     adapter.Adapter

	pipeline      *pipeline.Pipeline
	recorder      *recorder.Recorder
	rtmpClient    *rtmp.Client
	wsClient      *wsstream.Client
	redisListener *redislistener.Listener

	audioOutput *audiooutput.Manager
	captions    *captions.Manager
	streaming   *audioingest.StreamingManager
	autoleave   *autoleave.Policy

	recording *store.Recording

	ingestMu sync.Mutex
	ingest   map[string]*participantBuffer

	// msgCh is the single channel every goroutine (Redis listener, Adapter
	// callbacks, pipeline appsink, ticker, signal handler) posts closures
	// onto; Run's goroutine is the only one that ever reads it, so it is
	// the only goroutine allowed to touch Supervisor's fields.
	msgCh chan func(context.Context, *Supervisor)

	runCalled     bool
	firstTick     bool
	cleanupCalled bool
	cleanupDone   chan struct{}
	cancelRun     context.CancelFunc
}

// participantBuffer accumulates one speaker's raw PCM until it is long
// enough to flush as an Utterance, standing in for
// individual_audio_input_manager.py's per-participant batching when the
// recording isn't using a streaming transcription provider.
type participantBuffer struct {
	pcm       []byte
	startedAt time.Time
}

// flushThreshold mirrors the individual-audio-input path's coarse batching
// granularity: buffer ~2s of audio per participant before persisting.
const flushThreshold = 2 * time.Second

// New builds a Supervisor for bot, wiring it per cfg. Run must be called
// exactly once.
func New(bot *store.Bot, cfg PipelineConfiguration, deps Deps) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	meetingType, err := adapter.MeetingTypeFromURL(bot.MeetingURL)
	if err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	logger := deps.Logger.With("bot_id", bot.ID)
	s := &Supervisor{
		bot:         bot,
		cfg:         cfg,
		deps:        deps,
		logger:      logger,
		meetingType: meetingType,
		autoleave:   autoleave.NewPolicy(deps.AutoLeave),
		ingest:      make(map[string]*participantBuffer),
		msgCh:       make(chan func(context.Context, *Supervisor), 256),
		firstTick:   true,
		cleanupDone: make(chan struct{}),
	}
	return s, nil
}

// post enqueues fn to run on the Supervisor's single event-loop goroutine.
// Safe to call from any goroutine, including Run's own.
func (s *Supervisor) post(fn func(context.Context, *Supervisor)) {
	s.msgCh <- fn
}

// Run wires the startup sequence, then drives the cooperative event loop
// until ctx is cancelled, a SIGTERM/SIGINT arrives, or cleanup completes,
// mirroring BotController.run()'s GLib.MainLoop().
func (s *Supervisor) Run(ctx context.Context) error {
	if s.runCalled {
		return fmt.Errorf("supervisor: run already called")
	}
	s.runCalled = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel
	defer cancel()

	if err := s.startup(runCtx); err != nil {
		return fmt.Errorf("supervisor: startup: %w", err)
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.cleanupDone:
			return nil
		case <-ctx.Done():
			s.Cleanup(context.Background())
			return nil
		case <-ticker.C:
			// A panic in one tick is logged and turned into cleanup rather
			// than leaving the bot running.
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.logger.Errorw("tick panicked, cleaning up", "panic", r)
						s.Cleanup(context.Background())
					}
				}()
				s.onTick(ctx)
			}()
		case fn := <-s.msgCh:
			fn(ctx, s)
		}
	}
}

// startup constructs the Adapter and the pipeline/recorder/rtmp/websocket
// egress selected by cfg, starts the Redis command-channel listener, and
// initiates the join (bot_controller.py's run() body).
func (s *Supervisor) startup(ctx context.Context) error {
	callbacks := adapter.Callbacks{
		SendMessage: func(msg adapter.AdapterMessage) {
			s.post(func(ctx context.Context, s *Supervisor) { s.handleAdapterMessage(ctx, msg) })
		},
		AddAudioChunk: func(participantID string, tsMs int64, pcm []byte) {
			s.post(func(ctx context.Context, s *Supervisor) { s.handleParticipantAudio(ctx, participantID, tsMs, pcm) })
		},
		AddMixedAudioChunk: func(pcm []byte) {
			if s.pipeline != nil {
				s.pipeline.OnMixedAudioRawDataReceived(pcm, time.Now().UnixNano())
			}
			if s.rtmpClient != nil && s.rtmpClient.IsRunning() {
				_ = s.rtmpClient.WriteData(pcm)
			}
			if s.wsClient != nil {
				_ = s.wsClient.SendMixedAudio(pcm)
			}
		},
		AddVideoFrame: func(frame []byte, tsNs int64) {
			if s.pipeline != nil {
				s.pipeline.OnNewVideoFrame(frame, tsNs)
			}
		},
		WantsAnyVideoFrames: func() bool {
			if s.pipeline != nil {
				return s.pipeline.WantsAnyVideoFrames()
			}
			return false
		},
		UpsertCaption: func(captionID, deviceID, text string) {
			s.post(func(ctx context.Context, s *Supervisor) {
				if s.captions != nil {
					s.captions.Upsert(captions.Data{CaptionID: captionID, DeviceID: deviceID, Text: text})
				}
			})
		},
	}

	switch s.meetingType {
	case adapter.MeetingTypeZoom:
		a, err := adapter.NewZoomAdapter(s.bot.MeetingURL, callbacks, s.autoleave)
		if err != nil {
			return err
		}
		s.adapter = a
	case adapter.MeetingTypeGoogleMeet:
		s.adapter = adapter.NewGoogleMeetAdapter(s.bot.MeetingURL, callbacks, s.autoleave)
	case adapter.MeetingTypeTeams:
		s.adapter = adapter.NewTeamsAdapter(s.bot.MeetingURL, callbacks, s.autoleave)
	default:
		return fmt.Errorf("supervisor: unsupported meeting type %q", s.meetingType)
	}

	// The Recording row's object id anchors the temp file path every media
	// sink below writes to, so it must exist before any of them start.
	recordingID, err := s.getOrCreateRecording(ctx)
	if err != nil {
		return fmt.Errorf("get or create recording: %w", err)
	}

	if s.cfg.RTMPStreamAudio || s.cfg.RTMPStreamVideo {
		s.rtmpClient = rtmp.NewClient(s.rtmpDestinationURL(), s.logger)
		if err := s.rtmpClient.Start(ctx); err != nil {
			return fmt.Errorf("rtmp client start: %w", err)
		}
	}

	// Zoom's SDK feeds audio/video frames through this package's own
	// ffmpeg-backed pipeline; Meet/Teams record in-browser and are driven
	// by the screen recorder instead (should_create_gstreamer_pipeline).
	if s.shouldCreatePipeline() {
		p := pipeline.New(s.pipelineConfigForMedia(), s.logger)
		if err := p.Setup(ctx); err != nil {
			return fmt.Errorf("pipeline setup: %w", err)
		}
		s.pipeline = p
	} else if s.cfg.RecordAudio || s.cfg.RecordVideo {
		s.recorder = recorder.New(s.recordingFileLocation(), recorder.Dimensions{Width: 1920, Height: 1080}, !s.cfg.RecordVideo, s.logger)
		if err := s.recorder.StartRecording(""); err != nil {
			return fmt.Errorf("recorder start: %w", err)
		}
	}

	if s.cfg.WebsocketStreamAudio {
		profile := adapter.AudioProfileFor(s.meetingType)
		s.wsClient = wsstream.New(s.websocketDestinationURL(), profile.SampleRate, func(pcm []byte, sampleRate int) {
			if err := s.adapter.SendRawAudio(pcm, sampleRate); err != nil {
				s.logger.Warnw("websocket audio playback failed", "error", err)
			}
		}, s.logger)
		if err := s.wsClient.Connect(ctx); err != nil {
			return fmt.Errorf("websocket stream connect: %w", err)
		}
	}

	outputSampleRate := adapter.AudioProfileFor(s.meetingType).SampleRate
	s.audioOutput = audiooutput.NewManager(s.logger, s.deps.AudioSrc, func(chunk []byte) error {
		return s.adapter.SendRawAudio(chunk, outputSampleRate)
	}, func(req *store.MediaRequest) {
		s.post(func(ctx context.Context, s *Supervisor) { s.mediaRequestFinished(ctx, req) })
	})

	s.captions = captions.NewManager(recordingID, s.lookupParticipantByDevice, func(u *store.Utterance) {
		err := s.deps.DB.DB(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recording_id"}, {Name: "source_uuid"}},
			DoUpdates: clause.AssignmentColumns([]string{"transcription", "duration_ms", "participant_id"}),
		}).Create(u).Error
		if err != nil {
			s.logger.Warnw("save caption utterance failed", "recordingId", u.RecordingID, "sourceUuid", u.SourceUUID, "error", err)
		}
	})

	if s.deps.VoiceDet != nil && s.deps.Transcribe != nil {
		profile := adapter.AudioProfileFor(s.meetingType)
		s.streaming = audioingest.NewStreamingManager(s.deps.VoiceDet, profile.SampleRate, s.deps.Transcribe)
	}

	if s.deps.RedisNew != nil {
		s.redisListener = s.deps.RedisNew(fmt.Sprintf("%d", s.bot.ID), func(cmd redislistener.Command) {
			s.post(func(ctx context.Context, s *Supervisor) { s.handleRedisCommand(ctx, cmd) })
		})
		go func() {
			if err := s.redisListener.Run(ctx); err != nil {
				s.logger.Warnw("redis listener stopped", "error", err)
			}
		}()
	}

	return s.adapter.Init(ctx)
}

func (s *Supervisor) shouldCreatePipeline() bool {
	return s.meetingType == adapter.MeetingTypeZoom
}

func (s *Supervisor) pipelineConfigForMedia() pipeline.Config {
	cfg := pipeline.Config{VideoWidth: 1920, VideoHeight: 1080, AudioSampleRate: 32000}
	switch {
	case s.cfg.RTMPStreamAudio || s.cfg.RTMPStreamVideo:
		cfg.SinkType = pipeline.SinkTypeAppsink
		cfg.OutputFormat = pipeline.OutputFormatFLV
		cfg.OnNewSample = func(sample []byte) {
			if s.rtmpClient != nil && s.rtmpClient.IsRunning() {
				_ = s.rtmpClient.WriteData(sample)
			}
		}
	default:
		cfg.SinkType = pipeline.SinkTypeFile
		cfg.OutputFormat = pipeline.OutputFormatMP4
		cfg.FileLocation = s.recordingFileLocation()
	}
	cfg.AudioFormat = pipeline.AudioFormatPCM
	return cfg
}

func (s *Supervisor) recordingFileLocation() string {
	return uploader.TempPath(s.recordingObjectID(), "mp4")
}

func (s *Supervisor) recordingObjectID() string {
	if s.recording != nil {
		return s.recording.ObjectID
	}
	return store.NewObjectID()
}

func (s *Supervisor) rtmpDestinationURL() string {
	if v, ok := s.bot.Settings.Map()["rtmp_destination_url"].(string); ok {
		return v
	}
	return ""
}

func (s *Supervisor) websocketDestinationURL() string {
	if v, ok := s.bot.Settings.Map()["websocket_settings"].(map[string]any); ok {
		if u, ok := v["url"].(string); ok {
			return u
		}
	}
	return ""
}

func (s *Supervisor) getOrCreateRecording(ctx context.Context) (uint64, error) {
	var rec store.Recording
	err := s.deps.DB.DB(ctx).Where("bot_id = ?", s.bot.ID).First(&rec).Error
	if err == nil {
		s.recording = &rec
		return rec.ID, nil
	}
	rec = store.Recording{
		BotID:              s.bot.ID,
		RecordingType:      s.recordingType(),
		TranscriptionType:  s.transcriptionType(),
		State:              store.RecordingStateNotStarted,
		TranscriptionState: store.TranscriptionStateNotStarted,
	}
	if err := s.deps.DB.DB(ctx).Create(&rec).Error; err != nil {
		return 0, err
	}
	s.recording = &rec
	return rec.ID, nil
}

func (s *Supervisor) recordingType() store.RecordingType {
	switch {
	case s.cfg.RecordVideo:
		return store.RecordingTypeAudioVideo
	case s.cfg.RecordAudio:
		return store.RecordingTypeAudioOnly
	default:
		return store.RecordingTypeNone
	}
}

func (s *Supervisor) transcriptionType() store.TranscriptionType {
	if !s.cfg.TranscribeAudio {
		return store.TranscriptionTypeNone
	}
	if s.deps.Transcribe != nil {
		return store.TranscriptionTypeRealtime
	}
	return store.TranscriptionTypeNonRealtime
}

func (s *Supervisor) lookupParticipantByDevice(deviceID string) *store.Participant {
	var p store.Participant
	if err := s.deps.DB.DB(context.Background()).Where("bot_id = ? AND uuid = ?", s.bot.ID, deviceID).First(&p).Error; err != nil {
		return nil
	}
	return &p
}

// onTick is the 100ms event-loop body (on_main_loop_timeout): a
// first-call state sync, heartbeat, caption/audio-ingest processing,
// auto-leave evaluation, and audio-output monitoring, each guarded so one
// collaborator's absence (e.g. no captions manager when the platform
// doesn't support them) never halts the others.
func (s *Supervisor) onTick(ctx context.Context) {
	if s.firstTick {
		s.firstTick = false
		s.takeActionBasedOnBotInDB(ctx)
	}

	s.heartbeat(ctx)

	if s.captions != nil {
		s.captions.Process()
	}
	if s.streaming != nil {
		s.streaming.Monitor()
	}
	s.flushStaleParticipantBuffers(ctx)

	if reason, fired := s.adapter.CheckAutoLeaveConditions(); fired {
		s.requestLeave(ctx, reason)
	}

	if s.audioOutput != nil {
		s.audioOutput.Monitor()
	}
}

func (s *Supervisor) heartbeat(ctx context.Context) {
	now := s.deps.Now()
	updates := map[string]any{"last_heartbeat_at": now}
	if s.bot.FirstHeartbeatAt == nil {
		updates["first_heartbeat_at"] = now
		s.bot.FirstHeartbeatAt = &now
	}
	s.bot.LastHeartbeatAt = &now
	_ = s.deps.DB.DB(ctx).Model(&store.Bot{}).Where("id = ?", s.bot.ID).Updates(updates).Error
}

// takeActionBasedOnBotInDB mirrors the same-named method: it reconciles
// the bot's current requested state (JOINING -> adapter.Init,
// LEAVING -> adapter.Leave) once on the first tick, and again whenever a
// Redis `sync` command refreshes it mid-run.
func (s *Supervisor) takeActionBasedOnBotInDB(ctx context.Context) {
	state, err := s.deps.Events.CurrentState(ctx, s.bot.ID)
	if err != nil {
		s.logger.Warnw("failed to load bot state", "error", err)
		return
	}
	switch state {
	case store.StateJoining:
		if err := s.adapter.Init(ctx); err != nil {
			s.logger.Warnw("adapter init failed", "error", err)
		}
	case store.StateLeaving:
		if err := s.adapter.Leave(ctx); err != nil {
			s.logger.Warnw("adapter leave failed", "error", err)
		}
	}
}

func (s *Supervisor) requestLeave(ctx context.Context, reason statemachine.LeaveReason) {
	if _, err := s.deps.Events.CreateEvent(ctx, s.bot.ID, statemachine.EventLeaveRequested, statemachine.LeaveReasonSubType(reason), nil); err != nil {
		s.logger.Warnw("create leave-requested event failed", "error", err)
		return
	}
	if err := s.adapter.Leave(ctx); err != nil {
		s.logger.Warnw("adapter leave failed", "error", err)
	}
}

// handleRedisCommand dispatches the two command-channel messages
// (handle_redis_message): `sync` re-reads the bot row and reconciles it,
// `sync_media_requests` re-checks for newly enqueued media.
func (s *Supervisor) handleRedisCommand(ctx context.Context, cmd redislistener.Command) {
	switch cmd.Name {
	case "sync":
		s.takeActionBasedOnBotInDB(ctx)
	case "sync_media_requests":
		s.takeActionBasedOnMediaRequests(ctx)
	default:
		s.logger.Warnw("unrecognized redis command", "command", cmd.Name)
	}
}

// Cleanup is the idempotent teardown path (cleanup()): it stops media
// egress in dependency order, lets the Adapter release platform resources,
// remuxes and uploads any recording, and closes the event loop. Safe to
// call more than once or concurrently with Run's own ctx.Done() path.
func (s *Supervisor) Cleanup(ctx context.Context) {
	if s.cleanupCalled {
		return
	}
	s.cleanupCalled = true

	if s.cancelRun != nil {
		s.cancelRun()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.teardown(ctx)
	}()

	watchdog := s.deps.CleanupWatchdogTimeout
	if watchdog == 0 {
		watchdog = 10 * time.Minute
	}

	select {
	case <-done:
	case <-time.After(watchdog):
		s.logger.Errorw("cleanup watchdog fired before teardown completed")
	}
	close(s.cleanupDone)
}

func (s *Supervisor) teardown(ctx context.Context) {
	if s.captions != nil {
		s.captions.Flush()
	}
	s.flushAllParticipantBuffers(ctx)

	if s.pipeline != nil {
		if err := s.pipeline.Cleanup(ctx); err != nil {
			s.logger.Warnw("pipeline cleanup failed", "error", err)
		}
	}
	if s.recorder != nil {
		if err := s.recorder.StopRecording(); err != nil {
			s.logger.Warnw("recorder stop failed", "error", err)
		}
		if err := s.recorder.Cleanup(); err != nil {
			s.logger.Warnw("recorder cleanup failed", "error", err)
		}
	}
	if s.rtmpClient != nil {
		if err := s.rtmpClient.Stop(); err != nil {
			s.logger.Warnw("rtmp client stop failed", "error", err)
		}
	}
	if s.wsClient != nil {
		if err := s.wsClient.Close(); err != nil {
			s.logger.Warnw("websocket client close failed", "error", err)
		}
	}
	if err := s.adapter.Cleanup(ctx); err != nil {
		s.logger.Warnw("adapter cleanup failed", "error", err)
	}

	s.uploadRecording(ctx)

	if state, err := s.deps.Events.CurrentState(ctx, s.bot.ID); err == nil && state == store.StatePostProcessing {
		if _, err := s.deps.Events.CreateEvent(ctx, s.bot.ID, statemachine.EventPostProcessingCompleted, "", nil); err != nil {
			s.logger.Warnw("post processing completed event failed", "error", err)
		}
	}

	if s.deps.Webhooks != nil {
		_, _ = s.deps.Webhooks.Trigger(ctx, s.bot.ProjectID, &s.bot.ID, "bot.state_change", map[string]any{"bot_id": s.bot.ID})
	}
}

func (s *Supervisor) uploadRecording(ctx context.Context) {
	if s.recording == nil || s.deps.Uploader == nil {
		return
	}
	path := s.recordingFileLocation()
	key := uploader.Key(s.recording.ObjectID, "mp4")
	s.deps.Uploader.UploadFile(ctx, path, key, func(success bool) {
		status := store.RecordingStateComplete
		if !success {
			status = store.RecordingStateFailed
		}
		_ = s.deps.DB.DB(ctx).Model(&store.Recording{}).Where("id = ?", s.recording.ID).
			Updates(map[string]any{"state": status, "storage_key": key}).Error
	})
	s.deps.Uploader.Wait()
}
