// Package store provides the durable per-user fact store.
//
// The store is a flat key-value namespace per user: ordinary facts share it
// with the reserved session-mirror keys (level, plan, messages_used,
// memory_count, difficulty). The durable store is the source of truth; the
// in-memory session is a cache reconciled against it after writes.
package store

import (
	"context"
	"strconv"

	"github.com/sofia-labs/sofia/internal/domain"
)

// FactStore defines the interface for persisting per-user key-value state.
type FactStore interface {
	// Load retrieves all keys for a user. A user with no state yields an
	// empty map, not an error.
	Load(ctx context.Context, userID string) (map[string]string, error)

	// Get retrieves a single key. Missing keys yield ("", nil).
	Get(ctx context.Context, userID, key string) (string, error)

	// Upsert creates or replaces a single key. Latest value wins.
	Upsert(ctx context.Context, userID, key, value string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}

// LoadLevel reads the persisted level. Missing or unparseable values yield
// (0, nil) so callers can distinguish "never persisted" from store errors.
func LoadLevel(ctx context.Context, s FactStore, userID string) (int, error) {
	return loadInt(ctx, s, userID, domain.StoreKeyLevel)
}

// SaveLevel persists the level.
func SaveLevel(ctx context.Context, s FactStore, userID string, level int) error {
	return s.Upsert(ctx, userID, domain.StoreKeyLevel, strconv.Itoa(level))
}

// LoadPlan reads the persisted plan; missing values yield ("", nil).
func LoadPlan(ctx context.Context, s FactStore, userID string) (string, error) {
	return s.Get(ctx, userID, domain.StoreKeyPlan)
}

// SavePlan persists the plan.
func SavePlan(ctx context.Context, s FactStore, userID string, plan domain.Plan) error {
	return s.Upsert(ctx, userID, domain.StoreKeyPlan, string(plan))
}

// LoadDifficulty reads the persisted difficulty; missing values yield ("", nil).
func LoadDifficulty(ctx context.Context, s FactStore, userID string) (string, error) {
	return s.Get(ctx, userID, domain.StoreKeyDifficulty)
}

// SaveDifficulty persists the difficulty.
func SaveDifficulty(ctx context.Context, s FactStore, userID string, d domain.Difficulty) error {
	return s.Upsert(ctx, userID, domain.StoreKeyDifficulty, string(d))
}

// LoadMessagesUsed reads the persisted quota counter.
func LoadMessagesUsed(ctx context.Context, s FactStore, userID string) (int, error) {
	return loadInt(ctx, s, userID, domain.StoreKeyMessagesUsed)
}

// SaveMessagesUsed persists the quota counter.
func SaveMessagesUsed(ctx context.Context, s FactStore, userID string, n int) error {
	return s.Upsert(ctx, userID, domain.StoreKeyMessagesUsed, strconv.Itoa(n))
}

// LoadMemoryCount reads the persisted fact count.
func LoadMemoryCount(ctx context.Context, s FactStore, userID string) (int, error) {
	return loadInt(ctx, s, userID, domain.StoreKeyMemoryCount)
}

// SaveMemoryCount persists the fact count.
func SaveMemoryCount(ctx context.Context, s FactStore, userID string, n int) error {
	return s.Upsert(ctx, userID, domain.StoreKeyMemoryCount, strconv.Itoa(n))
}

// UserFacts filters a loaded key set down to whitelisted facts, dropping
// the reserved session-mirror keys.
func UserFacts(all map[string]string) map[string]string {
	facts := make(map[string]string)
	for k, v := range all {
		if domain.IsFactKey(k) {
			facts[k] = v
		}
	}
	return facts
}

func loadInt(ctx context.Context, s FactStore, userID, key string) (int, error) {
	raw, err := s.Get(ctx, userID, key)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return n, nil
}
