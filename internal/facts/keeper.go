package facts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/store"
)

// CapacityNotice is the soft notice returned when a write is dropped
// because the plan's memory is full.
const CapacityNotice = "My memory for you is full on your current plan 🙈 upgrade if you want me to remember more."

// Keeper persists accepted facts, enforcing the plan's memory capacity.
type Keeper struct {
	store store.FactStore
}

// NewKeeper creates a keeper over the given fact store.
func NewKeeper(s store.FactStore) *Keeper {
	return &Keeper{store: s}
}

// Remember upserts one fact for the user. Before writing a brand-new key
// the persisted fact count is checked against the plan's capacity;
// over-capacity writes are dropped and the soft notice is returned.
// Updates to an existing key never count against capacity.
func (k *Keeper) Remember(ctx context.Context, userID string, plan domain.Plan, key, value string) (notice string, err error) {
	if !domain.IsFactKey(key) {
		return "", fmt.Errorf("key %q is not a known fact category", key)
	}
	if len(value) < domain.FactValueMinLen || len(value) > domain.FactValueMaxLen {
		return "", fmt.Errorf("value for %q must be %d-%d characters", key, domain.FactValueMinLen, domain.FactValueMaxLen)
	}
	if containsBanned(value) {
		return "", fmt.Errorf("value for %q is not something I keep", key)
	}

	existing, err := k.store.Get(ctx, userID, key)
	if err != nil {
		return "", fmt.Errorf("check existing fact: %w", err)
	}
	isNew := existing == ""

	if isNew {
		count, err := store.LoadMemoryCount(ctx, k.store, userID)
		if err != nil {
			return "", fmt.Errorf("load memory count: %w", err)
		}
		if count >= domain.MemoryCapacity(plan) {
			slog.Info("fact dropped at capacity", "user_id", userID, "plan", plan, "count", count)
			return CapacityNotice, nil
		}
		if err := k.store.Upsert(ctx, userID, key, value); err != nil {
			return "", fmt.Errorf("persist fact: %w", err)
		}
		if err := store.SaveMemoryCount(ctx, k.store, userID, count+1); err != nil {
			slog.Warn("failed to persist memory count", "user_id", userID, "error", err)
		}
		return "", nil
	}

	if err := k.store.Upsert(ctx, userID, key, value); err != nil {
		return "", fmt.Errorf("persist fact: %w", err)
	}
	return "", nil
}

// RememberAll persists a batch of extracted facts one by one. Store errors
// are logged and skipped; extraction is advisory and must not fail a turn.
// Returns the first capacity notice encountered, if any.
func (k *Keeper) RememberAll(ctx context.Context, userID string, plan domain.Plan, extracted map[string]string) string {
	var notice string
	for key, value := range extracted {
		n, err := k.Remember(ctx, userID, plan, key, value)
		if err != nil {
			slog.Warn("failed to persist extracted fact", "user_id", userID, "key", key, "error", err)
			continue
		}
		if n != "" && notice == "" {
			notice = n
		}
	}
	return notice
}
