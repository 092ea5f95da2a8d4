// Package bot orchestrates one conversational turn: auth, quota, scoring,
// fact extraction, persona composition and the completion call.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sofia-labs/sofia/internal/auth"
	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/facts"
	"github.com/sofia-labs/sofia/internal/llm"
	"github.com/sofia-labs/sofia/internal/persona"
	"github.com/sofia-labs/sofia/internal/quota"
	"github.com/sofia-labs/sofia/internal/scoring"
	"github.com/sofia-labs/sofia/internal/session"
	"github.com/sofia-labs/sofia/internal/store"
)

// ApologyReply covers completion-service failures. The turn is not
// charged against the quota when this is sent.
const ApologyReply = "Sorry babe, my head's a total mess right now 😅 say that again?"

// chatTemperature keeps persona replies varied; scoring and extraction
// run at zero elsewhere.
const chatTemperature = 0.9

// Replier delivers replies back to whatever transport the message came
// from.
type Replier interface {
	Reply(ctx context.Context, text string) error
	ReplyKeyboard(ctx context.Context, text string, buttons [][]string) error
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Gate       *auth.Gate
	Quota      *quota.Gate
	Sessions   *session.Registry
	Progress   *session.Progression
	Scorer     *scoring.Scorer
	Extractor  *facts.Extractor
	Keeper     *facts.Keeper
	Store      store.FactStore
	Completer  llm.Completer
	ReplyDelay time.Duration
}

// Orchestrator drives the per-message pipeline. All state lives in the
// session registry; the orchestrator itself is stateless and safe for
// concurrent use.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator creates an orchestrator from its dependencies.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// HandleMessage processes one inbound message end to end. Empty messages
// and "ping" keepalives are dropped without a reply. The user's session is
// locked for the whole turn, so a user's messages are always handled in
// order, one at a time.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, text string, r Replier) {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "ping") {
		return
	}

	log := slog.With("turn_id", uuid.NewString(), "user_id", userID)

	o.deps.Sessions.Do(userID, func(sess *domain.UserSession) {
		send := func(msg string) {
			if err := r.Reply(ctx, msg); err != nil {
				log.Warn("failed to deliver reply", "error", err)
			}
		}

		// A pending auth step consumes the message outright.
		if sess.Pending != domain.PendingNone {
			send(o.deps.Gate.Consume(ctx, sess, text))
			return
		}

		if strings.HasPrefix(text, "/") {
			o.handleCommand(ctx, log, sess, text, r)
			return
		}

		if !sess.Authorized {
			send(o.deps.Gate.Begin(sess))
			return
		}

		// Keyboard mode picks arrive as plain words.
		if d, ok := parseDifficultyChoice(text); ok {
			o.setDifficulty(ctx, log, sess, d, send)
			return
		}

		if !o.deps.Quota.Allow(sess) {
			log.Info("message rejected on exhausted quota", "used", sess.MessagesUsed)
			send(quota.UpgradePrompt)
			return
		}

		o.chatTurn(ctx, log, sess, text, r, send)
	})
}

func (o *Orchestrator) chatTurn(ctx context.Context, log *slog.Logger, sess *domain.UserSession, text string, r Replier, send func(string)) {
	// Coach mode analyzes instead of roleplaying; nothing is scored.
	var outcome *session.Outcome
	var rating domain.Rating
	if sess.Difficulty != domain.DifficultyCoach {
		score := o.deps.Scorer.Score(ctx, sess.LastBotMessage, text)
		out := o.deps.Progress.Apply(ctx, sess, score)
		outcome = &out
		rating = out.Rating
		log.Info("exchange scored",
			"flirty", score.Flirty, "personality", score.Personality,
			"rating", out.Rating, "level", out.NewLevel, "boss_start", out.BossStart)
	}

	var notice string
	if extracted := o.deps.Extractor.Extract(ctx, text); len(extracted) > 0 {
		notice = o.deps.Keeper.RememberAll(ctx, sess.UserID, sess.Plan, extracted)
	}

	userFacts := map[string]string{}
	if all, err := o.deps.Store.Load(ctx, sess.UserID); err != nil {
		log.Warn("failed to load facts for composition", "error", err)
	} else {
		userFacts = store.UserFacts(all)
	}

	directive := persona.Compose(persona.Input{
		Session:     sess,
		Facts:       userFacts,
		LastRating:  rating,
		UserMessage: text,
	})

	replyText, err := o.deps.Completer.Complete(ctx, llm.Request{
		Instruction: directive,
		UserText:    text,
		Temperature: chatTemperature,
	})
	if err != nil {
		log.Warn("completion failed", "error", err)
		replyText = ApologyReply
	}

	o.deliver(ctx, send, replyText)

	if outcome != nil && sess.ShowRating {
		send(ratingFooter(*outcome))
	}
	if notice != "" {
		send(notice)
	}

	sess.LastBotMessage = replyText
	sess.TickBoss()

	if err == nil {
		if cerr := o.deps.Quota.Commit(ctx, sess); cerr != nil {
			log.Warn("failed to commit quota spend", "error", cerr)
		}
	}
}

// deliver sends the reply, splitting paragraph breaks into separate
// messages with a short pause between them.
func (o *Orchestrator) deliver(ctx context.Context, send func(string), replyText string) {
	parts := SplitReply(replyText)
	for i, part := range parts {
		if i > 0 && o.deps.ReplyDelay > 0 {
			select {
			case <-time.After(o.deps.ReplyDelay):
			case <-ctx.Done():
				return
			}
		}
		send(part)
	}
}

// SplitReply breaks a reply into per-message chunks on blank lines.
func SplitReply(text string) []string {
	raw := strings.Split(text, "\n\n")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func ratingFooter(out session.Outcome) string {
	s := fmt.Sprintf("📊 %s (%+d) · level %d", out.Rating, out.Delta, out.NewLevel)
	if out.BossStart {
		s += "\n⚠️ She's gone cold. Win her back."
	}
	return s
}

func parseDifficultyChoice(text string) (domain.Difficulty, bool) {
	switch d := domain.Difficulty(strings.ToLower(text)); d {
	case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard, domain.DifficultyCoach:
		return d, true
	}
	return "", false
}
