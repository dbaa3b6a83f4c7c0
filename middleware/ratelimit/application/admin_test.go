package application

import (
	"context"
	"testing"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_StatusIsReadOnly(t *testing.T) {
	clock := newFakeClock()
	store := infra.NewLocalStore(infra.WithLocalClock(clock.Now))
	svc := newTestService(clock, store)
	admin := AdminService{Registry: svc.Registry, Store: store, Clock: clock.Now}
	ctx := context.Background()

	st, err := admin.Status(ctx, "ip:8.8.8.8", domain.ClassDescription, domain.TierNone)
	require.NoError(t, err)
	assert.Equal(t, domain.Status{
		Identity:  "ip:8.8.8.8",
		Class:     domain.ClassDescription,
		Limit:     10,
		Remaining: 10,
		ResetAt:   clock.Now().Add(time.Minute),
	}, st)

	start := clock.Now()
	for i := 0; i < 4; i++ {
		svc.Check(ctx, "ip:8.8.8.8", domain.ClassDescription, domain.TierNone)
	}
	clock.Advance(10 * time.Second)

	for i := 0; i < 3; i++ {
		st, err = admin.Status(ctx, "ip:8.8.8.8", domain.ClassDescription, domain.TierNone)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4), st.Count)
	assert.Equal(t, 6, st.Remaining)
	assert.Equal(t, start.Add(time.Minute), st.ResetAt)
	assert.False(t, st.Blocked)

	v := svc.Check(ctx, "ip:8.8.8.8", domain.ClassDescription, domain.TierNone)
	assert.Equal(t, 5, v.Remaining, "status calls must not consume quota")
}

func TestAdminService_StatusReportsBlock(t *testing.T) {
	clock := newFakeClock()
	store := infra.NewLocalStore(infra.WithLocalClock(clock.Now))
	svc := newTestService(clock, store)
	admin := AdminService{Registry: svc.Registry, Store: store, Clock: clock.Now}
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		svc.Check(ctx, "user:1", domain.ClassDescription, domain.TierNone)
	}

	st, err := admin.Status(ctx, "user:1", domain.ClassDescription, domain.TierNone)
	require.NoError(t, err)
	assert.True(t, st.Blocked)
	assert.Equal(t, 0, st.Remaining)
	assert.Equal(t, int64(11), st.Count)
	assert.Equal(t, clock.Now().Add(300*time.Second), st.BlockedUntil)

	clock.Advance(301 * time.Second)
	st, err = admin.Status(ctx, "user:1", domain.ClassDescription, domain.TierNone)
	require.NoError(t, err)
	assert.False(t, st.Blocked)
	assert.Zero(t, st.Count)
	assert.Equal(t, 10, st.Remaining)
}

func TestAdminService_ExpiredWindowShowsFullQuota(t *testing.T) {
	clock := newFakeClock()
	store := infra.NewLocalStore(infra.WithLocalClock(clock.Now))
	svc := newTestService(clock, store)
	admin := AdminService{Registry: svc.Registry, Store: store, Clock: clock.Now}
	ctx := context.Background()

	svc.Check(ctx, "user:2", domain.ClassVocabulary, domain.TierNone)
	clock.Advance(time.Minute)

	st, err := admin.Status(ctx, "user:2", domain.ClassVocabulary, domain.TierNone)
	require.NoError(t, err)
	assert.Zero(t, st.Count)
	assert.Equal(t, 3, st.Remaining)
}

func TestAdminService_RequiresStore(t *testing.T) {
	_, err := AdminService{}.Status(context.Background(), "ip:1.1.1.1", domain.ClassAuth, domain.TierNone)
	assert.ErrorIs(t, err, ErrNoStore)
	assert.ErrorIs(t, AdminService{}.Reset(context.Background(), "ip:1.1.1.1", domain.ClassAuth), ErrNoStore)
}
