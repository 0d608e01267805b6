package data

import (
	"context"
	"fmt"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/biz"
	"github.com/sober-studio/blog-api-go-kratos/internal/conf"

	"github.com/redis/go-redis/v9"
)

const DefaultRevocationsPerHour = 10

var _ biz.RevocationLimiter = (*redisRevocationLimiter)(nil)

// redisRevocationLimiter 按小时固定窗口计数
// revoked:rate:{subject}:{2006010215} => 计数，1 小时过期
type redisRevocationLimiter struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

func NewRevocationLimiter(c *conf.App, data *Data) biz.RevocationLimiter {
	limit := int64(DefaultRevocationsPerHour)
	if c.Revocation != nil && c.Revocation.RateLimitPerHour != 0 {
		limit = int64(c.Revocation.RateLimitPerHour)
	}
	return &redisRevocationLimiter{client: data.RDB(), limit: limit, now: time.Now}
}

func (l *redisRevocationLimiter) Allow(ctx context.Context, subject string) (bool, error) {
	if l.limit < 0 {
		return true, nil
	}
	key := fmt.Sprintf("revoked:rate:%s:%s", subject, l.now().UTC().Format("2006010215"))
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, time.Hour)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= l.limit, nil
}
