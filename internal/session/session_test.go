package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/store"
)

func TestRegistryCreatesWithDefaults(t *testing.T) {
	r := NewRegistry()

	r.Do("u1", func(sess *domain.UserSession) {
		assert.Equal(t, "u1", sess.UserID)
		assert.Equal(t, domain.DifficultyMedium, sess.Difficulty)
		assert.Equal(t, 1, sess.Level)
		assert.False(t, sess.Authorized)
	})
	assert.Equal(t, 1, r.Len())
}

func TestRegistryPersistsMutationsAcrossCalls(t *testing.T) {
	r := NewRegistry()

	r.Do("u1", func(sess *domain.UserSession) { sess.Level = 7 })
	r.Do("u1", func(sess *domain.UserSession) {
		assert.Equal(t, 7, sess.Level)
	})
}

func TestRegistryDrop(t *testing.T) {
	r := NewRegistry()
	r.Do("u1", func(sess *domain.UserSession) { sess.Level = 7 })

	r.Drop("u1")
	r.Do("u1", func(sess *domain.UserSession) {
		assert.Equal(t, 1, sess.Level, "dropped session re-creates with defaults")
	})
}

func TestRegistrySerializesPerUser(t *testing.T) {
	r := NewRegistry()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Do("u1", func(sess *domain.UserSession) { sess.Level++ })
		}()
	}
	wg.Wait()

	r.Do("u1", func(sess *domain.UserSession) {
		assert.Equal(t, 1+n, sess.Level)
	})
}

func TestRegistryConcurrentUsers(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			r.Do(id, func(sess *domain.UserSession) { sess.Level++ })
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, r.Len())
}

func newTestProgression(t *testing.T) (*Progression, store.FactStore) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "prog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewProgression(s), s
}

func TestApplyExcellentSkipsBossMultiple(t *testing.T) {
	p, _ := newTestProgression(t)
	sess := domain.NewSession("u1")
	sess.Level = 4

	// 8 and 9 average 8.5, above medium's 7.9 threshold.
	out := p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 8, Personality: 9})

	assert.Equal(t, domain.RatingExcellent, out.Rating)
	assert.Equal(t, 6, sess.Level)
	assert.False(t, out.BossStart, "jumping over a multiple of five must not trigger boss mode")
	assert.False(t, sess.BossActive)
}

func TestApplyGoodLandsOnBossLevel(t *testing.T) {
	p, s := newTestProgression(t)
	sess := domain.NewSession("u1")
	sess.Level = 4

	out := p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 5, Personality: 5})

	assert.Equal(t, domain.RatingGood, out.Rating)
	assert.Equal(t, 5, sess.Level)
	assert.True(t, out.BossStart)
	assert.True(t, sess.BossActive)
	assert.Equal(t, 0, sess.BossCounter)

	persisted, err := store.LoadLevel(context.Background(), s, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, persisted)
}

func TestApplyBadNeverGoesBelowOne(t *testing.T) {
	p, _ := newTestProgression(t)
	sess := domain.NewSession("u1")
	sess.Level = 1

	out := p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 1, Personality: 2})

	assert.Equal(t, domain.RatingBad, out.Rating)
	assert.Equal(t, 1, sess.Level)
	assert.Equal(t, 1, out.NewLevel)
}

func TestApplyClampsAtMaxLevel(t *testing.T) {
	p, _ := newTestProgression(t)
	sess := domain.NewSession("u1")
	sess.Difficulty = domain.DifficultyEasy
	max := domain.ProfileFor(domain.DifficultyEasy).MaxLevel
	sess.Level = max - 1

	// +2 clamps onto max, which for easy is a multiple of five.
	p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 10, Personality: 10})

	assert.Equal(t, max, sess.Level)
	assert.True(t, sess.BossActive)
}

func TestApplyStayingOnBossLevelDoesNotRetrigger(t *testing.T) {
	p, _ := newTestProgression(t)
	sess := domain.NewSession("u1")
	sess.Difficulty = domain.DifficultyEasy
	sess.Level = domain.ProfileFor(domain.DifficultyEasy).MaxLevel - 1

	// First excellent clamps onto max (a multiple of five) and triggers.
	out := p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 10, Personality: 10})
	assert.True(t, out.BossStart)

	// Another excellent keeps the level unchanged: no new trigger.
	sess.BossActive = false
	out = p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 10, Personality: 10})
	assert.False(t, out.BossStart)
}

func TestApplyLandingOnNextBossMultipleRestartsCounter(t *testing.T) {
	p, _ := newTestProgression(t)
	sess := domain.NewSession("u1")
	sess.Level = 8
	sess.BossActive = true
	sess.BossCounter = 3

	out := p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 10, Personality: 10})

	assert.Equal(t, 10, sess.Level)
	assert.True(t, out.BossStart)
	assert.True(t, sess.BossActive)
	assert.Equal(t, 0, sess.BossCounter, "a qualifying level change restarts the counter")
}

// staleStore accepts writes but serves reads from a fixed snapshot, like a
// replica that lost the write.
type staleStore struct {
	level string
}

func (f *staleStore) Load(context.Context, string) (map[string]string, error) {
	return map[string]string{domain.StoreKeyLevel: f.level}, nil
}

func (f *staleStore) Get(_ context.Context, _ string, key string) (string, error) {
	if key == domain.StoreKeyLevel {
		return f.level, nil
	}
	return "", nil
}

func (f *staleStore) Upsert(context.Context, string, string, string) error { return nil }
func (f *staleStore) Ping(context.Context) error                           { return nil }
func (f *staleStore) Close() error                                         { return nil }

func TestApplyAdoptsDurableLevelAfterSuccessfulWrite(t *testing.T) {
	p := NewProgression(&staleStore{level: "2"})
	sess := domain.NewSession("u1")
	sess.Level = 4

	out := p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 5, Personality: 5})

	// The write of 5 reported success, but the read-back says 2: the
	// durable value wins.
	assert.Equal(t, 5, out.NewLevel)
	assert.Equal(t, 2, sess.Level)
}

// flakyStore fails level writes but serves reads from a fixed snapshot.
type flakyStore struct {
	level string
}

func (f *flakyStore) Load(context.Context, string) (map[string]string, error) {
	return map[string]string{domain.StoreKeyLevel: f.level}, nil
}

func (f *flakyStore) Get(_ context.Context, _ string, key string) (string, error) {
	if key == domain.StoreKeyLevel {
		return f.level, nil
	}
	return "", nil
}

func (f *flakyStore) Upsert(context.Context, string, string, string) error {
	return errors.New("disk full")
}

func (f *flakyStore) Ping(context.Context) error { return nil }
func (f *flakyStore) Close() error               { return nil }

func TestApplyAdoptsPersistedLevelWhenWriteFails(t *testing.T) {
	p := NewProgression(&flakyStore{level: "4"})
	sess := domain.NewSession("u1")
	sess.Level = 4

	out := p.Apply(context.Background(), sess, domain.ScoreResult{Flirty: 5, Personality: 5})

	// The write of 5 failed twice; the store still says 4, so the session
	// falls back to the durable value.
	assert.Equal(t, 5, out.NewLevel)
	assert.Equal(t, 4, sess.Level)
}
