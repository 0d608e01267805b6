package store

import (
	"context"
	"testing"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, log.DefaultLogger), mr
}

func session(jti, subject string, ttl time.Duration) *model.Session {
	now := time.Now().Truncate(time.Second)
	return &model.Session{JTI: jti, Subject: subject, UserID: 1, IssuedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestRedisSessionStore(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, session("a", "alice", time.Hour)))
	require.NoError(t, s.SaveSession(ctx, session("b", "alice", time.Hour)))
	require.NoError(t, s.SaveSession(ctx, session("c", "bob", time.Hour)))

	got, err := s.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Subject)

	list, err := s.ListSessions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.RemoveSession(ctx, "alice", "a"))
	_, err = s.GetSession(ctx, "a")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, s.RemoveSessions(ctx, "alice"))
	list, err = s.ListSessions(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.ListSessions(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRedisSessionStore_Expiry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, session("short", "alice", time.Minute)))
	require.NoError(t, s.SaveSession(ctx, session("long", "alice", time.Hour)))
	assert.True(t, mr.TTL("auth:subject:alice:sessions") > 50*time.Minute, "index lives as long as the longest session")

	mr.FastForward(2 * time.Minute)
	list, err := s.ListSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "long", list[0].JTI)

	members, err := mr.Members("auth:subject:alice:sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, members)

	require.NoError(t, s.SaveSession(ctx, session("gone", "alice", -time.Minute)))
	_, err = s.GetSession(ctx, "gone")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
