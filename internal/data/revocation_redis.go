package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"github.com/redis/go-redis/v9"
)

var _ revocation.Store = (*RedisRevocationStore)(nil)

/*
Redis Key 设计：
revoked:token:{jti} => string(json of Entry)，TTL 为距自然过期的剩余时间
revoked:tokens:by_expiry => zset，member 为 jti，score 为过期时间（毫秒）
*/
const revokedByExpiryKey = "revoked:tokens:by_expiry"

type RedisRevocationStore struct {
	client *redis.Client
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) tokenKey(jti string) string {
	return fmt.Sprintf("revoked:token:%s", jti)
}

func (s *RedisRevocationStore) Get(ctx context.Context, jti string) (*revocation.Entry, error) {
	data, err := s.client.Get(ctx, s.tokenKey(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, revocation.ErrNotFound
		}
		return nil, err
	}
	var e revocation.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Set 已存在时保留原记录
func (s *RedisRevocationStore) Set(ctx context.Context, e *revocation.Entry) error {
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.tokenKey(e.JTI), data, ttl)
		pipe.ZAddNX(ctx, revokedByExpiryKey, redis.Z{Score: float64(e.ExpiresAt.UnixMilli()), Member: e.JTI})
		return nil
	})
	return err
}

func (s *RedisRevocationStore) Delete(ctx context.Context, jti string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey(jti))
		pipe.ZRem(ctx, revokedByExpiryKey, jti)
		return nil
	})
	return err
}

// DeleteExpired 数据键由 TTL 自动过期，这里清理索引并兜底删除
func (s *RedisRevocationStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	jtis, err := s.client.ZRangeByScore(ctx, revokedByExpiryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil || len(jtis) == 0 {
		return 0, err
	}
	keys := make([]string, len(jtis))
	members := make([]interface{}, len(jtis))
	for i, jti := range jtis {
		keys[i] = s.tokenKey(jti)
		members[i] = jti
	}
	var removed *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		removed = pipe.ZRem(ctx, revokedByExpiryKey, members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed.Val(), nil
}

func (s *RedisRevocationStore) ListActive(ctx context.Context, now time.Time) ([]*revocation.Entry, error) {
	jtis, err := s.client.ZRangeByScore(ctx, revokedByExpiryKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(now.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil || len(jtis) == 0 {
		return nil, err
	}
	keys := make([]string, len(jtis))
	for i, jti := range jtis {
		keys[i] = s.tokenKey(jti)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]*revocation.Entry, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e revocation.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func (s *RedisRevocationStore) CountActive(ctx context.Context, now time.Time) (map[revocation.Reason]int64, error) {
	entries, err := s.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}
	counts := make(map[revocation.Reason]int64)
	for _, e := range entries {
		counts[e.Reason]++
	}
	return counts, nil
}
