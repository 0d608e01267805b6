package data

import (
	"context"
	"testing"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/metrics"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 两种后端实现同一套行为
func storeBehaviour(t *testing.T, s revocation.Store) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, revocation.ErrNotFound)

	short := &revocation.Entry{JTI: "short", Subject: "alice", Reason: revocation.ReasonLogout, RevokedAt: now, ExpiresAt: now.Add(time.Minute)}
	long := &revocation.Entry{JTI: "long", Subject: "bob", Reason: revocation.ReasonAdminRevoke, RevokedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Set(ctx, short))
	require.NoError(t, s.Set(ctx, long))

	got, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Subject)
	assert.Equal(t, revocation.ReasonLogout, got.Reason)
	assert.True(t, got.ExpiresAt.Equal(short.ExpiresAt))

	// 重复写入保留首次记录
	dup := *short
	dup.Reason = revocation.ReasonSecurityBreach
	require.NoError(t, s.Set(ctx, &dup))
	got, err = s.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, revocation.ReasonLogout, got.Reason)

	active, err := s.ListActive(ctx, now)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	counts, err := s.CountActive(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, map[revocation.Reason]int64{revocation.ReasonAdminRevoke: 1}, counts)

	removed, err := s.DeleteExpired(ctx, short.ExpiresAt)
	require.NoError(t, err)
	assert.Zero(t, removed, "entries expiring exactly at the cutoff are kept")

	removed, err = s.DeleteExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = s.Get(ctx, "short")
	require.ErrorIs(t, err, revocation.ErrNotFound)
	_, err = s.Get(ctx, "long")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "long"))
	_, err = s.Get(ctx, "long")
	require.ErrorIs(t, err, revocation.ErrNotFound)
}

func TestRedisRevocationStore(t *testing.T) {
	d, _ := newTestData(t)
	storeBehaviour(t, NewRedisRevocationStore(d.RDB()))
}

func TestRedisRevocationStore_KeyTTL(t *testing.T) {
	d, mr := newTestData(t)
	s := NewRedisRevocationStore(d.RDB())
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, &revocation.Entry{JTI: "t1", ExpiresAt: time.Now().Add(time.Minute)}))

	ttl := mr.TTL("revoked:token:t1")
	assert.True(t, ttl > 50*time.Second && ttl <= time.Minute, "ttl=%v", ttl)

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "t1")
	require.ErrorIs(t, err, revocation.ErrNotFound)

	// 已过期的记录不再写入
	require.NoError(t, s.Set(ctx, &revocation.Entry{JTI: "t2", ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.False(t, mr.Exists("revoked:token:t2"))
}

func TestRedisRevocationStore_Unavailable(t *testing.T) {
	d, mr := newTestData(t)
	s := NewRedisRevocationStore(d.RDB())
	mr.Close()

	_, err := s.Get(context.Background(), "t1")
	require.Error(t, err)
	require.NotErrorIs(t, err, revocation.ErrNotFound)
}

func TestGormRevocationStore(t *testing.T) {
	d, _ := newTestData(t)
	storeBehaviour(t, NewGormRevocationStore(d))
}

func TestNewRevocationStore(t *testing.T) {
	d, _ := newTestData(t)

	s, err := NewRevocationStore(&conf.App{}, d)
	require.NoError(t, err)
	assert.IsType(t, &RedisRevocationStore{}, s)

	s, err = NewRevocationStore(&conf.App{Revocation: &conf.App_Revocation{Store: StoreDatabase}}, d)
	require.NoError(t, err)
	assert.IsType(t, &GormRevocationStore{}, s)

	s, err = NewRevocationStore(&conf.App{Revocation: &conf.App_Revocation{Store: StoreMemory}}, d)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewRevocationStore(&conf.App{Revocation: &conf.App_Revocation{Store: "etcd"}}, d)
	require.Error(t, err)
}

func TestNewRevocationRegistry_PolicyMustBeExplicit(t *testing.T) {
	d, _ := newTestData(t)
	store := NewRedisRevocationStore(d.RDB())
	m, err := metrics.NewMetrics(nil)
	require.NoError(t, err)

	_, err = NewRevocationRegistry(&conf.App{}, store, m, log.DefaultLogger)
	require.Error(t, err)
	_, err = NewRevocationRegistry(&conf.App{Revocation: &conf.App_Revocation{}}, store, m, log.DefaultLogger)
	require.Error(t, err)

	r, err := NewRevocationRegistry(&conf.App{Revocation: &conf.App_Revocation{FailurePolicy: "closed"}}, store, m, log.DefaultLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop(context.Background()) })
}

func TestRegistryOverRedis_FailClosedWhenRedisDown(t *testing.T) {
	d, mr := newTestData(t)
	store := NewRedisRevocationStore(d.RDB())
	r, err := NewRevocationRegistry(&conf.App{Revocation: &conf.App_Revocation{
		FailurePolicy: "closed",
		LookupTimeout: &conf.Duration{Duration: 100 * time.Millisecond},
	}}, store, nil, log.DefaultLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop(context.Background()) })
	ctx := context.Background()

	// 另一个实例写入的撤销记录
	require.NoError(t, store.Set(ctx, &revocation.Entry{JTI: "remote", ExpiresAt: time.Now().Add(time.Hour)}))
	revoked, err := r.IsRevoked(ctx, "remote")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.Close()
	revoked, err = r.IsRevoked(ctx, "unknown")
	require.ErrorIs(t, err, revocation.ErrUnavailable)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "remote")
	require.NoError(t, err)
	assert.True(t, revoked)
}
