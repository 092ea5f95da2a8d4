// Package auth implements the authorization flow gating access to chat.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/store"
)

// Replies used by the flow. Wrong answers keep the same pending state, so
// retries are unlimited.
const (
	PasswordPrompt  = "Before we chat... what's the password? 🔑"
	PasswordRetry   = "Nope, that's not it. Try again 🙃"
	EmailPrompt     = "Got it! Which email did you sign up with?"
	EmailUnknown    = "I don't see that email on any plan 🤔 double-check it?"
	EmailBoundReply = "That email is already linked to someone else 🤨"
	EmailRetry      = "Hmm, I couldn't verify that email right now. Try again?"
	WelcomeReply    = "You're in 😏 So... tell me about yourself."
	DevPrompt       = "Developer password:"
	DevRetry        = "Wrong developer password."
	DevWelcome      = "Developer mode enabled 🛠"
)

// Gate runs the password (and optional email-linking) state machine for a
// session. registry may be nil, which skips the email step entirely.
type Gate struct {
	password    string
	devPassword string
	registry    *PlanRegistry
	store       store.FactStore
}

// NewGate creates a gate. Pass a nil registry to disable email linking.
func NewGate(password, devPassword string, registry *PlanRegistry, s store.FactStore) *Gate {
	return &Gate{password: password, devPassword: devPassword, registry: registry, store: s}
}

// Begin moves an anonymous session into the password flow.
func (g *Gate) Begin(sess *domain.UserSession) string {
	sess.Pending = domain.PendingPassword
	return PasswordPrompt
}

// BeginDev moves a session into the developer-password flow.
func (g *Gate) BeginDev(sess *domain.UserSession) string {
	sess.Pending = domain.PendingDevPassword
	return DevPrompt
}

// Consume handles one message while the session has pending auth input and
// returns the reply to send. Callers must only invoke it when
// sess.Pending != PendingNone; the message is consumed either way and
// never reaches the chat pipeline.
func (g *Gate) Consume(ctx context.Context, sess *domain.UserSession, text string) string {
	text = strings.TrimSpace(text)

	switch sess.Pending {
	case domain.PendingPassword:
		if text != g.password {
			return PasswordRetry
		}
		if g.registry != nil {
			sess.Pending = domain.PendingEmail
			return EmailPrompt
		}
		g.Authorize(ctx, sess)
		return WelcomeReply

	case domain.PendingEmail:
		email := strings.ToLower(text)
		lic, err := g.registry.Claim(ctx, email, sess.UserID)
		switch {
		case errors.Is(err, ErrUnknownEmail):
			return EmailUnknown
		case errors.Is(err, ErrEmailBound):
			return EmailBoundReply
		case err != nil:
			slog.Warn("plan registry claim failed", "user_id", sess.UserID, "error", err)
			return EmailRetry
		}
		sess.Email = email
		g.Authorize(ctx, sess)
		// The registry's plan is authoritative over anything persisted.
		// Linking onto starter grants a fresh allowance.
		sess.Plan = domain.ParsePlan(lic.Plan)
		if sess.Plan == domain.PlanStarter {
			sess.MessagesUsed = 0
			if err := store.SaveMessagesUsed(ctx, g.store, sess.UserID, 0); err != nil {
				slog.Warn("failed to reset message counter", "user_id", sess.UserID, "error", err)
			}
		}
		if err := store.SavePlan(ctx, g.store, sess.UserID, sess.Plan); err != nil {
			slog.Warn("failed to persist plan from registry", "user_id", sess.UserID, "error", err)
		}
		return WelcomeReply

	case domain.PendingDevPassword:
		if text != g.devPassword || g.devPassword == "" {
			return DevRetry
		}
		sess.Developer = true
		g.Authorize(ctx, sess)
		return DevWelcome
	}

	return PasswordRetry
}

// Authorize marks the session authorized and merges the persisted mirror
// keys into it. The durable store wins over in-memory defaults; a fresh
// user with nothing persisted keeps the session defaults. Store errors are
// logged, not fatal: a reachable-but-flaky store must not lock users out.
func (g *Gate) Authorize(ctx context.Context, sess *domain.UserSession) {
	sess.Authorized = true
	sess.Pending = domain.PendingNone

	if d, err := store.LoadDifficulty(ctx, g.store, sess.UserID); err != nil {
		slog.Warn("failed to load persisted difficulty", "user_id", sess.UserID, "error", err)
	} else if d != "" {
		sess.Difficulty = domain.ParseDifficulty(d)
	}

	if lvl, err := store.LoadLevel(ctx, g.store, sess.UserID); err != nil {
		slog.Warn("failed to load persisted level", "user_id", sess.UserID, "error", err)
	} else if lvl > 0 {
		sess.Level = lvl
	}
	sess.ClampLevel()

	if p, err := store.LoadPlan(ctx, g.store, sess.UserID); err != nil {
		slog.Warn("failed to load persisted plan", "user_id", sess.UserID, "error", err)
	} else if p != "" {
		sess.Plan = domain.ParsePlan(p)
	}

	if used, err := store.LoadMessagesUsed(ctx, g.store, sess.UserID); err != nil {
		slog.Warn("failed to load message counter", "user_id", sess.UserID, "error", err)
	} else {
		sess.MessagesUsed = used
	}
}
