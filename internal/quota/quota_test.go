package quota

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/store"
)

func newTestGate(t *testing.T) (*Gate, store.FactStore) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "quota.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewGate(s), s
}

func TestAllowStarterWithinLimit(t *testing.T) {
	g, _ := newTestGate(t)
	sess := domain.NewSession("u1")

	sess.MessagesUsed = StarterLimit - 1
	assert.True(t, g.Allow(sess))

	sess.MessagesUsed = StarterLimit
	assert.False(t, g.Allow(sess))
}

func TestAllowPaidPlansUnlimited(t *testing.T) {
	g, _ := newTestGate(t)

	for _, plan := range []domain.Plan{domain.PlanPro, domain.PlanElite} {
		sess := domain.NewSession("u1")
		sess.Plan = plan
		sess.MessagesUsed = StarterLimit * 10
		assert.True(t, g.Allow(sess))
	}
}

func TestCommitCountsStarterOnly(t *testing.T) {
	g, s := newTestGate(t)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	require.NoError(t, g.Commit(ctx, sess))
	assert.Equal(t, 1, sess.MessagesUsed)

	persisted, err := store.LoadMessagesUsed(ctx, s, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, persisted)

	pro := domain.NewSession("u2")
	pro.Plan = domain.PlanPro
	require.NoError(t, g.Commit(ctx, pro))
	assert.Equal(t, 0, pro.MessagesUsed)

	persisted, err = store.LoadMessagesUsed(ctx, s, "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, persisted, "paid plans are never metered")
}

func TestSetPlanToStarterResetsCounter(t *testing.T) {
	g, s := newTestGate(t)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	sess.Plan = domain.PlanPro
	sess.MessagesUsed = 12

	require.NoError(t, g.SetPlan(ctx, sess, domain.PlanStarter))
	assert.Equal(t, domain.PlanStarter, sess.Plan)
	assert.Equal(t, 0, sess.MessagesUsed)

	plan, err := store.LoadPlan(ctx, s, "u1")
	require.NoError(t, err)
	assert.Equal(t, string(domain.PlanStarter), plan)

	used, err := store.LoadMessagesUsed(ctx, s, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestSetPlanUpgradeKeepsCounter(t *testing.T) {
	g, s := newTestGate(t)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	sess.MessagesUsed = 5

	require.NoError(t, g.SetPlan(ctx, sess, domain.PlanElite))
	assert.Equal(t, 5, sess.MessagesUsed)

	plan, err := store.LoadPlan(ctx, s, "u1")
	require.NoError(t, err)
	assert.Equal(t, string(domain.PlanElite), plan)
}
