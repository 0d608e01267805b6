package job

import (
	"context"
	"errors"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/cron"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"github.com/go-kratos/kratos/v2/log"
)

var (
	_ cron.Job = (*RevocationCleanupJob)(nil)
	_ cron.Job = (*RevocationGaugeJob)(nil)
)

// 后端短暂不可用时重试一次
const cleanupRetryDelay = 3 * time.Second

// RevocationCleanupJob 每天低峰期清理自然过期的撤销记录
type RevocationCleanupJob struct {
	cron.BaseJob
	registry   RevocationMaintainer
	retryDelay time.Duration
	log        *log.Helper
}

func NewRevocationCleanupJob(c *conf.App, registry RevocationMaintainer, logger log.Logger) *RevocationCleanupJob {
	spec := cron.DailyAt(2, 0, 0)
	if c.Revocation != nil && c.Revocation.CleanupSpec != "" {
		spec = c.Revocation.CleanupSpec
	}
	return &RevocationCleanupJob{
		BaseJob: cron.BaseJob{
			JobName: "RevocationCleanupJob",
			JobSpec: spec,
			JobDesc: "清理已自然过期的撤销记录",
		},
		registry:   registry,
		retryDelay: cleanupRetryDelay,
		log:        log.NewHelper(log.With(logger, "module", "job/revocation-cleanup")),
	}
}

func (j *RevocationCleanupJob) Run(ctx context.Context) error {
	removed, err := j.registry.CleanupExpired(ctx)
	if err != nil && errors.Is(err, revocation.ErrUnavailable) {
		j.log.Warnf("revocation cleanup hit unavailable store, retrying once: %v", err)
		select {
		case <-time.After(j.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		var again int64
		again, err = j.registry.CleanupExpired(ctx)
		removed += again
	}
	if err != nil {
		return err
	}
	j.log.Infof("revocation cleanup removed %d expired entries", removed)
	return nil
}

// RevocationGaugeJob 每 5 分钟上报活跃撤销数量
type RevocationGaugeJob struct {
	cron.BaseJob
	registry RevocationMaintainer
	log      *log.Helper
}

func NewRevocationGaugeJob(c *conf.App, registry RevocationMaintainer, logger log.Logger) *RevocationGaugeJob {
	spec := cron.EveryFiveMinutesSpec
	if c.Revocation != nil && c.Revocation.ReportSpec != "" {
		spec = c.Revocation.ReportSpec
	}
	return &RevocationGaugeJob{
		BaseJob: cron.BaseJob{
			JobName: "RevocationGaugeJob",
			JobSpec: spec,
			JobDesc: "上报未过期的撤销记录数量",
		},
		registry: registry,
		log:      log.NewHelper(log.With(logger, "module", "job/revocation-gauge")),
	}
}

func (j *RevocationGaugeJob) Run(ctx context.Context) error {
	n := j.registry.ReportActiveCount(ctx)
	j.log.Debugf("active revoked tokens: %d", n)
	return nil
}
