package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaintainer struct {
	errs     []error
	cleanups int
	reports  int
}

func (m *fakeMaintainer) CleanupExpired(context.Context) (int64, error) {
	m.cleanups++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return 0, err
	}
	return 2, nil
}

func (m *fakeMaintainer) ReportActiveCount(context.Context) int64 {
	m.reports++
	return 7
}

func TestNewJobs_Specs(t *testing.T) {
	m := &fakeMaintainer{}
	c := &conf.App{}
	assert.Equal(t, "0 0 2 * * *", NewRevocationCleanupJob(c, m, log.DefaultLogger).Spec())
	assert.Equal(t, "0 */5 * * * *", NewRevocationGaugeJob(c, m, log.DefaultLogger).Spec())

	c.Revocation = &conf.App_Revocation{CleanupSpec: "0 30 3 * * *", ReportSpec: "0 * * * * *"}
	assert.Equal(t, "0 30 3 * * *", NewRevocationCleanupJob(c, m, log.DefaultLogger).Spec())
	assert.Equal(t, "0 * * * * *", NewRevocationGaugeJob(c, m, log.DefaultLogger).Spec())
}

func TestRevocationCleanupJob(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		m := &fakeMaintainer{}
		j := NewRevocationCleanupJob(&conf.App{}, m, log.DefaultLogger)
		require.NoError(t, j.Run(ctx))
		assert.Equal(t, 1, m.cleanups)
	})

	t.Run("retries once when store unavailable", func(t *testing.T) {
		m := &fakeMaintainer{errs: []error{revocation.ErrUnavailable}}
		j := NewRevocationCleanupJob(&conf.App{}, m, log.DefaultLogger)
		j.retryDelay = time.Millisecond
		require.NoError(t, j.Run(ctx))
		assert.Equal(t, 2, m.cleanups)
	})

	t.Run("gives up after second failure", func(t *testing.T) {
		m := &fakeMaintainer{errs: []error{revocation.ErrUnavailable, revocation.ErrUnavailable}}
		j := NewRevocationCleanupJob(&conf.App{}, m, log.DefaultLogger)
		j.retryDelay = time.Millisecond
		require.ErrorIs(t, j.Run(ctx), revocation.ErrUnavailable)
		assert.Equal(t, 2, m.cleanups)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		m := &fakeMaintainer{errs: []error{errors.New("boom")}}
		j := NewRevocationCleanupJob(&conf.App{}, m, log.DefaultLogger)
		require.Error(t, j.Run(ctx))
		assert.Equal(t, 1, m.cleanups)
	})

	t.Run("canceled while waiting", func(t *testing.T) {
		m := &fakeMaintainer{errs: []error{revocation.ErrUnavailable}}
		j := NewRevocationCleanupJob(&conf.App{}, m, log.DefaultLogger)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, j.Run(cctx), context.Canceled)
		assert.Equal(t, 1, m.cleanups)
	})
}

func TestRevocationGaugeJob(t *testing.T) {
	m := &fakeMaintainer{}
	j := NewRevocationGaugeJob(&conf.App{}, m, log.DefaultLogger)
	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, 1, m.reports)
}

func TestCleanupJob_AgainstRegistry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	registry, err := revocation.NewRegistry(revocation.FailClosed, log.DefaultLogger,
		revocation.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.NoError(t, registry.Revoke(ctx, revocation.Entry{JTI: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, registry.Revoke(ctx, revocation.Entry{JTI: "live", ExpiresAt: now.Add(time.Hour)}))

	require.NoError(t, NewRevocationCleanupJob(&conf.App{}, registry, log.DefaultLogger).Run(ctx))
	assert.Equal(t, 1, registry.Len())
}
