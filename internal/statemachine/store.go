package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/store"
	"gorm.io/gorm"
)

// ErrInvalidTransition is returned by CreateEvent when (state, event_type,
// sub_type) has no row in the transition table. No mutation is performed
// (spec.md §4.1, §7, §8 invariant 1).
var ErrInvalidTransition = errors.New("statemachine: invalid transition")

// TerminalHook is invoked, inside the same DB transaction that wrote the
// terminal event, whenever a bot enters ended/fatal_error/data_deleted
// (spec.md §4.1 "Terminal-state detection for the billing hook").
// cmd/botcontroller wires this to internal/credits' Charger.ApplyTerminalCharge
// without statemachine importing it — mirroring the teacher's
// callback-constructor pattern (e.g. AudioOutputManager's
// currently_playing_..._finished_callback) to keep this package free of
// billing concerns. Webhooks are not sent from this hook; the Supervisor
// triggers them from its own teardown.
type TerminalHook func(ctx context.Context, tx *gorm.DB, bot *store.Bot, event *store.BotEvent) error

// EventStore is the authoritative writer of Bot.State and BotEvent rows.
type EventStore struct {
	db           store.PostgresConnector
	logger       logging.Logger
	terminalHook TerminalHook
}

// NewEventStore builds an EventStore. terminalHook may be nil.
func NewEventStore(db store.PostgresConnector, logger logging.Logger, terminalHook TerminalHook) *EventStore {
	return &EventStore{db: db, logger: logger, terminalHook: terminalHook}
}

// CreateEvent looks up the bot's current state, validates the transition,
// and atomically persists the event plus the bot's new state. Writes for a
// given bot are serialized via a row-level lock (spec.md §5: "DB writes for
// state transitions ... MUST hold a per-bot row lock").
func (s *EventStore) CreateEvent(ctx context.Context, botID uint64, eventType EventType, subType EventSubType, metadata map[string]interface{}) (*store.BotEvent, error) {
	var event *store.BotEvent

	err := s.db.DB(ctx).Transaction(func(tx *gorm.DB) error {
		var bot store.Bot
		if err := tx.Clauses(lockingClause()).First(&bot, botID).Error; err != nil {
			return fmt.Errorf("statemachine: load bot %d: %w", botID, err)
		}

		newState, ok := Transition(bot.State, eventType, subType)
		if !ok {
			return fmt.Errorf("%w: bot %d state=%s event=%s sub_type=%s", ErrInvalidTransition, botID, bot.State, eventType, subType)
		}

		ev := &store.BotEvent{
			BotID:     botID,
			EventType: string(eventType),
			OldState:  bot.State,
			NewState:  newState,
			Metadata:  store.NewJSONMap(metadata),
		}
		if subType != "" {
			st := string(subType)
			ev.EventSubType = &st
		}
		if err := tx.Create(ev).Error; err != nil {
			return fmt.Errorf("statemachine: create event: %w", err)
		}

		if err := tx.Model(&store.Bot{}).Where("id = ?", botID).Update("state", newState).Error; err != nil {
			return fmt.Errorf("statemachine: update bot state: %w", err)
		}
		bot.State = newState

		if newState.IsTerminal() && s.terminalHook != nil {
			if err := s.terminalHook(ctx, tx, &bot, ev); err != nil {
				return fmt.Errorf("statemachine: terminal hook: %w", err)
			}
		}

		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("bot state transition",
		"bot_id", botID, "event_type", eventType, "event_sub_type", subType,
		"old_state", event.OldState, "new_state", event.NewState)
	return event, nil
}

// CurrentState returns the bot's state without locking — used by read
// paths (e.g. the Redis `sync` command) that don't need serialization.
func (s *EventStore) CurrentState(ctx context.Context, botID uint64) (store.State, error) {
	var bot store.Bot
	if err := s.db.DB(ctx).Select("state").First(&bot, botID).Error; err != nil {
		return "", err
	}
	return bot.State, nil
}
