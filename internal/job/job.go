package job

import (
	"context"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewRevocationCleanupJob,
	NewRevocationGaugeJob,
	wire.Bind(new(RevocationMaintainer), new(*revocation.Registry)),
)

// RevocationMaintainer 撤销登记表的维护操作
type RevocationMaintainer interface {
	CleanupExpired(ctx context.Context) (int64, error)
	ReportActiveCount(ctx context.Context) int64
}
