// Command scheduler periodically launches bots whose scheduled join time
// has arrived: it polls for state='scheduled' AND scheduled_join_at <=
// now(), atomically claims each one by creating its JOIN_REQUESTED event,
// and execs a botcontroller process per claimed bot, mirroring how
// original_source/bots/bot_controller/bot_controller.py is itself launched
// as a separate process per bot.
package main

import (
	"context"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/meetbot/core/internal/config"
	"github.com/meetbot/core/internal/credits"
	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/statemachine"
	"github.com/meetbot/core/internal/store"
)

func main() {
	v, err := config.Init()
	if err != nil {
		log.Fatalf("scheduler: config init: %v", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		log.Fatalf("scheduler: config load: %v", err)
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:    cfg.LogLevel,
		FilePath: cfg.LogFile,
		Console:  true,
	})
	if err != nil {
		log.Fatalf("scheduler: logger init: %v", err)
	}

	conn, err := store.NewPostgresConnector(cfg.Postgres)
	if err != nil {
		logger.Fatalf("scheduler: connect postgres: %v", err)
	}
	defer conn.Close()

	charger := credits.NewCharger(cfg.CreditsBillingEnabled, cfg.CentiCreditsPerMinute)
	events := statemachine.NewEventStore(conn, logger, charger.ApplyTerminalCharge)

	botcontrollerPath := os.Getenv("BOTCONTROLLER_PATH")
	if botcontrollerPath == "" {
		botcontrollerPath = "botcontroller"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infow("shutdown signal received")
		cancel()
	}()

	interval := cfg.SchedulerPollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	logger.Infow("scheduler starting", "poll_interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infow("scheduler shutting down")
			return
		case <-ticker.C:
			pollAndLaunch(ctx, conn, events, logger, botcontrollerPath)
		}
	}
}

// pollAndLaunch finds every bot due to join and launches a botcontroller
// process for each, claiming it first by recording JOIN_REQUESTED so a
// second scheduler replica (or a retried tick) never double-launches it.
func pollAndLaunch(ctx context.Context, conn store.PostgresConnector, events *statemachine.EventStore, logger logging.Logger, botcontrollerPath string) {
	var due []store.Bot
	err := conn.DB(ctx).
		Where("state = ? AND scheduled_join_at IS NOT NULL AND scheduled_join_at <= ?", store.StateScheduled, time.Now()).
		Find(&due).Error
	if err != nil {
		logger.Errorw("scheduler: query due bots failed", "error", err)
		return
	}

	for i := range due {
		bot := due[i]
		if _, err := events.CreateEvent(ctx, bot.ID, statemachine.EventJoinRequested, "", nil); err != nil {
			logger.Errorw("scheduler: claim bot failed, skipping launch", "bot_id", bot.ID, "error", err)
			continue
		}
		launch(botcontrollerPath, bot.ID, logger)
	}
}

// launch starts a detached botcontroller process for botID. It does not
// wait for the process to exit: the scheduler's job ends at successful
// launch, matching the one-process-per-bot model cmd/botcontroller assumes.
// The child is intentionally not tied to the scheduler's own context — a
// scheduler restart must not kill bots already in a meeting.
func launch(botcontrollerPath string, botID uint64, logger logging.Logger) {
	cmd := exec.Command(botcontrollerPath, "-bot-id", strconv.FormatUint(botID, 10))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		logger.Errorw("scheduler: launch botcontroller failed", "bot_id", botID, "error", err)
		return
	}
	logger.Infow("scheduler: launched botcontroller", "bot_id", botID, "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warnw("scheduler: botcontroller process exited with error", "bot_id", botID, "error", err)
		}
	}()
}
