package session

import (
	"context"
	"log/slog"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/store"
)

// bossInterval triggers boss mode on every multiple of this level.
const bossInterval = 5

// Outcome summarizes one progression step for the caller's reply text.
type Outcome struct {
	Rating    domain.Rating
	Delta     int
	OldLevel  int
	NewLevel  int
	BossStart bool
}

// Progression applies scored exchanges to a session's level and mirrors
// the result into the durable store.
type Progression struct {
	store store.FactStore
}

// NewProgression creates a progression engine over the given store.
func NewProgression(s store.FactStore) *Progression {
	return &Progression{store: s}
}

// Apply rates the score against the session's difficulty, moves the level
// by the rating's delta, and starts boss mode when the new level lands on
// a boss multiple it wasn't already on. The updated level is persisted
// before returning.
func (p *Progression) Apply(ctx context.Context, sess *domain.UserSession, score domain.ScoreResult) Outcome {
	profile := domain.ProfileFor(sess.Difficulty)
	rating := score.Rate(profile)
	delta := rating.Delta()

	old := sess.Level
	sess.Level = domain.ClampInt(old+delta, 1, profile.MaxLevel)

	bossStart := false
	if sess.Level%bossInterval == 0 && sess.Level != old {
		sess.BossActive = true
		sess.BossCounter = 0
		bossStart = true
	}

	p.persistLevel(ctx, sess)

	return Outcome{
		Rating:    rating,
		Delta:     delta,
		OldLevel:  old,
		NewLevel:  sess.Level,
		BossStart: bossStart,
	}
}

// persistLevel writes the level with one retry, then reads it back and
// adopts the durable value on mismatch. The store is authoritative: the
// session must never drift from what actually survived, whether the write
// reported success or not.
func (p *Progression) persistLevel(ctx context.Context, sess *domain.UserSession) {
	if err := store.SaveLevel(ctx, p.store, sess.UserID, sess.Level); err != nil {
		slog.Warn("level persist failed, retrying", "user_id", sess.UserID, "error", err)
		if err = store.SaveLevel(ctx, p.store, sess.UserID, sess.Level); err != nil {
			slog.Warn("level persist failed twice", "user_id", sess.UserID, "error", err)
		}
	}

	persisted, err := store.LoadLevel(ctx, p.store, sess.UserID)
	if err != nil {
		slog.Warn("level read-back failed, keeping in-memory level",
			"user_id", sess.UserID, "level", sess.Level, "error", err)
		return
	}
	if persisted > 0 && persisted != sess.Level {
		slog.Warn("adopting persisted level over in-memory value",
			"user_id", sess.UserID, "in_memory", sess.Level, "persisted", persisted)
		sess.Level = persisted
		sess.ClampLevel()
	}
}
