package data

import (
	"fmt"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/metrics"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	StoreRedis    = "redis"
	StoreDatabase = "database"
	StoreMemory   = "memory"
)

// NewRevocationStore 按配置选择持久化后端，memory 表示仅进程内存
func NewRevocationStore(c *conf.App, data *Data) (revocation.Store, error) {
	kind := StoreRedis
	if c.Revocation != nil && c.Revocation.Store != "" {
		kind = c.Revocation.Store
	}
	switch kind {
	case StoreRedis:
		return NewRedisRevocationStore(data.RDB()), nil
	case StoreDatabase:
		return NewGormRevocationStore(data), nil
	case StoreMemory:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown revocation store %q", kind)
	}
}

// NewRevocationRegistry 失败策略必须显式配置
func NewRevocationRegistry(c *conf.App, store revocation.Store, m *metrics.Metrics, logger log.Logger) (*revocation.Registry, error) {
	rc := c.Revocation
	if rc == nil {
		return nil, fmt.Errorf("app.revocation must be configured")
	}
	policy, err := revocation.ParsePolicy(rc.FailurePolicy)
	if err != nil {
		return nil, err
	}
	opts := []revocation.Option{
		revocation.WithStore(store),
		revocation.WithLookupTimeout(rc.LookupTimeout.AsDuration()),
	}
	if rc.NegativeCacheTtl != nil {
		opts = append(opts, revocation.WithNegativeCacheTTL(rc.NegativeCacheTtl.AsDuration()))
	}
	if m != nil {
		opts = append(opts, revocation.WithGauge(m.RevokedActive))
	}
	return revocation.NewRegistry(policy, logger, opts...)
}
