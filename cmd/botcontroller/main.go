// Command botcontroller runs one Supervisor for a single bot end to end:
// it loads configuration, opens the event store, and drives the bot
// through Supervisor.Run until the meeting ends or the process is asked to
// shut down, mirroring original_source/bots/bot_controller/bot_controller.py
// being launched as its own process per bot.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/meetbot/core/internal/audioingest"
	"github.com/meetbot/core/internal/autoleave"
	"github.com/meetbot/core/internal/config"
	"github.com/meetbot/core/internal/credits"
	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/redislistener"
	"github.com/meetbot/core/internal/statemachine"
	"github.com/meetbot/core/internal/store"
	"github.com/meetbot/core/internal/supervisor"
	"github.com/meetbot/core/internal/tts"
	"github.com/meetbot/core/internal/uploader"
	"github.com/meetbot/core/internal/webhook"
)

const ttsSampleRate = 32000

func main() {
	botID := flag.Uint64("bot-id", 0, "id of the bot row to drive")
	flag.Parse()
	if *botID == 0 {
		log.Fatal("botcontroller: -bot-id is required")
	}

	v, err := config.Init()
	if err != nil {
		log.Fatalf("botcontroller: config init: %v", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		log.Fatalf("botcontroller: config load: %v", err)
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:    cfg.LogLevel,
		FilePath: cfg.LogFile,
		Console:  true,
	})
	if err != nil {
		log.Fatalf("botcontroller: logger init: %v", err)
	}

	conn, err := store.NewPostgresConnector(cfg.Postgres)
	if err != nil {
		logger.Fatalf("botcontroller: connect postgres: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infow("shutdown signal received")
		cancel()
	}()

	var bot store.Bot
	if err := conn.DB(ctx).First(&bot, *botID).Error; err != nil {
		logger.Fatalf("botcontroller: load bot %d: %v", *botID, err)
	}

	charger := credits.NewCharger(cfg.CreditsBillingEnabled, cfg.CentiCreditsPerMinute)
	events := statemachine.NewEventStore(conn, logger, charger.ApplyTerminalCharge)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	uploadDir := os.Getenv("RECORDING_UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}

	deps := supervisor.Deps{
		DB:       conn,
		Logger:   logger,
		Events:   events,
		Webhooks: webhook.NewDispatcher(conn.DB(ctx), logger, nil),
		Uploader: uploader.NewFileUploader(uploadDir, logger),
		RedisNew: func(id string, handler redislistener.Handler) *redislistener.Listener {
			return redislistener.New(redisClient, id, handler, logger)
		},
		AutoLeave:  autoleave.FromBotSettings(bot.Settings.Map()),
		AudioSrc:   tts.NewMediaSource(tts.NewMP3Decoder(), tts.NewGoogleSynthesizer(), ttsSampleRate),
		VoiceDet:   silenceOnlyDetector{},
		Transcribe: nil, // realtime streaming vendor adapters are out of scope
		// TranscriptionWorker is left nil: no concrete transcription.Transcriber
		// vendor adapter is in scope (internal/transcription's own package
		// doc), so there is nothing to pass transcription.NewWorker. The
		// Supervisor-side wiring (transcribeUtterance) already calls
		// TranscriptionWorker.Run for every flushed Utterance whenever one
		// is configured here.
		TranscriptionWorker:    nil,
		CleanupWatchdogTimeout: cfg.CleanupWatchdogTimeout,
	}

	sup, err := supervisor.New(&bot, pipelineConfigurationFromSettings(bot.Settings.Map()), deps)
	if err != nil {
		logger.Fatalf("botcontroller: build supervisor: %v", err)
	}

	if err := sup.Run(ctx); err != nil {
		logger.Errorw("supervisor run exited with error", "error", err)
		os.Exit(1)
	}
}

// silenceOnlyDetector is the audioingest.VoiceDetector used when no ONNX
// model path is configured: it treats all audio as speech, leaving pure
// RMS-based silence detection (already applied upstream of VoiceDetector
// calls) as the only gate.
type silenceOnlyDetector struct{}

func (silenceOnlyDetector) IsSpeech(pcm []byte, sampleRate int) (bool, error) {
	return len(pcm) > 0, nil
}

func redisAddr(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

var _ audioingest.VoiceDetector = silenceOnlyDetector{}

// pipelineConfigurationFromSettings picks one of the seven valid
// PipelineConfigurations from a bot's settings, reading the same
// settings-map-override shape rtmpDestinationURL/websocketDestinationURL
// already read off bot.Settings.Map(). Bots with no explicit media
// settings default to PureTranscriptionBot, the lightest-weight
// configuration that still satisfies Validate.
func pipelineConfigurationFromSettings(settings map[string]interface{}) supervisor.PipelineConfiguration {
	recordVideo, _ := settings["record_video"].(bool)
	recordAudio, _ := settings["record_audio"].(bool)
	rtmpAudio := settings["rtmp_destination_url"] != nil
	_, websocketAudio := settings["websocket_settings"]

	switch {
	case recordVideo && websocketAudio:
		return supervisor.RecorderBotWithWebsocketAudio()
	case recordVideo:
		return supervisor.RecorderBot()
	case recordAudio && websocketAudio:
		return supervisor.AudioRecorderBotWithWebsocketAudio()
	case recordAudio:
		return supervisor.AudioRecorderBot()
	case rtmpAudio:
		return supervisor.RTMPStreamingBot()
	case websocketAudio:
		return supervisor.PureTranscriptionBotWithWebsocketAudio()
	default:
		return supervisor.PureTranscriptionBot()
	}
}
