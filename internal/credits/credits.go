// Package credits applies the terminal-state credit charge (spec.md
// §4.12): when a bot reaches a terminal state, its recorded uptime is
// converted into a CreditTransaction against its organization's balance.
// Grounded on the teacher's gorm transaction-scoped write pattern
// (internal/callcontext/store.go) and wired as
// statemachine.TerminalHook so the charge lands in the same transaction
// that records the terminal BotEvent.
package credits

import (
	"context"
	"math"

	"github.com/meetbot/core/internal/store"
	"gorm.io/gorm"
)

// Reason values recorded on the CreditTransaction row.
const (
	ReasonBotUptime = "bot_uptime"
)

// Charger applies the terminal charge for a bot, gated by a feature flag.
type Charger struct {
	enabled               bool
	centiCreditsPerMinute int64
}

// NewCharger builds a Charger. enabled mirrors config.CreditsBillingEnabled;
// when false, ApplyTerminalCharge is a no-op (spec.md §4.12: credits
// billing is behind a feature flag).
func NewCharger(enabled bool, centiCreditsPerMinute int64) *Charger {
	return &Charger{enabled: enabled, centiCreditsPerMinute: centiCreditsPerMinute}
}

// ApplyTerminalCharge computes the bot's uptime from FirstHeartbeatAt to
// the terminal event's CreatedAt, rounds it up to whole minutes, and
// inserts a CreditTransaction debiting
// centiCreditsPerMinute * minutes from the bot's organization. It is meant
// to be called as (or from) a statemachine.TerminalHook, inside the same
// transaction that recorded the terminal event.
func (c *Charger) ApplyTerminalCharge(ctx context.Context, tx *gorm.DB, bot *store.Bot, event *store.BotEvent) error {
	if !c.enabled || c.centiCreditsPerMinute == 0 {
		return nil
	}
	if bot.FirstHeartbeatAt == nil {
		return nil
	}

	minutes := event.CreatedAt.Sub(*bot.FirstHeartbeatAt).Minutes()
	billedMinutes := int64(math.Ceil(math.Max(minutes, 0)))
	delta := billedMinutes * c.centiCreditsPerMinute

	txn := &store.CreditTransaction{
		OrganizationID:    bot.OrganizationID,
		BotID:             bot.ID,
		CentiCreditsDelta: -delta,
		Reason:            ReasonBotUptime,
	}
	return tx.WithContext(ctx).Create(txn).Error
}
