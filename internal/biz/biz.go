package biz

import (
	"context"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewSessionUseCase,
	wire.Bind(new(Revoker), new(*revocation.Registry)),
)

// Revoker 撤销登记表
type Revoker interface {
	Revoke(ctx context.Context, e revocation.Entry) error
	TryRevoke(ctx context.Context, e revocation.Entry) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Lookup(ctx context.Context, jti string) (*revocation.Entry, error)
	Stats(ctx context.Context) (map[revocation.Reason]int64, error)
}

// RevocationLimiter 按主体限制撤销频率
type RevocationLimiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
}
