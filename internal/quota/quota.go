// Package quota enforces the per-plan message allowance.
package quota

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/store"
)

// StarterLimit is the lifetime message allowance on the starter plan.
const StarterLimit = 20

// UpgradePrompt is sent verbatim when a starter user runs out of messages.
const UpgradePrompt = "That's all the messages your plan covers 💔 Upgrade to Pro to keep talking to me."

// Gate decides whether a user may spend a message and commits the spend
// after a reply is produced. Paid plans are never metered.
type Gate struct {
	store store.FactStore
}

// NewGate creates a gate over the given fact store.
func NewGate(s store.FactStore) *Gate {
	return &Gate{store: s}
}

// Allow reports whether the user may send a message right now. It is
// checked before any completion call so exhausted users cost nothing.
func (g *Gate) Allow(sess *domain.UserSession) bool {
	if sess.Plan != domain.PlanStarter {
		return true
	}
	return sess.MessagesUsed < StarterLimit
}

// Commit records one spent message after a reply was produced. Paid plans
// are not counted. The in-memory counter is bumped first so the session
// stays consistent even when the persist fails.
func (g *Gate) Commit(ctx context.Context, sess *domain.UserSession) error {
	if sess.Plan != domain.PlanStarter {
		return nil
	}
	sess.MessagesUsed++
	if err := store.SaveMessagesUsed(ctx, g.store, sess.UserID, sess.MessagesUsed); err != nil {
		return fmt.Errorf("persist message counter: %w", err)
	}
	return nil
}

// SetPlan switches the session's plan and persists it. Moving to starter
// resets the spent counter so a downgraded user gets a fresh allowance.
func (g *Gate) SetPlan(ctx context.Context, sess *domain.UserSession, plan domain.Plan) error {
	sess.Plan = plan
	if plan == domain.PlanStarter {
		sess.MessagesUsed = 0
		if err := store.SaveMessagesUsed(ctx, g.store, sess.UserID, 0); err != nil {
			slog.Warn("failed to reset message counter", "user_id", sess.UserID, "error", err)
		}
	}
	if err := store.SavePlan(ctx, g.store, sess.UserID, plan); err != nil {
		return fmt.Errorf("persist plan: %w", err)
	}
	return nil
}
