package server

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/sober-studio/blog-api-go-kratos/internal/job"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/cron"
)

func NewCronServer(
	logger log.Logger,
	cleanup *job.RevocationCleanupJob,
	gauge *job.RevocationGaugeJob,
) (*cron.Server, error) {
	srv := cron.NewServer(logger)

	for _, j := range []cron.Job{cleanup, gauge} {
		if err := srv.AddJob(j); err != nil {
			return nil, err
		}
	}

	return srv, nil
}
