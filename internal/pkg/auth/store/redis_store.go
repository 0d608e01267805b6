package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

var _ SessionStore = (*RedisSessionStore)(nil)

// RedisSessionStore 基于 Redis 的会话索引
type RedisSessionStore struct {
	client *redis.Client
	log    *log.Helper
}

/*
Redis Key 设计：
auth:session:{jti} => string(json of Session)，TTL 为令牌剩余有效期
auth:subject:{subject}:sessions => set of jti
*/

func NewRedisSessionStore(client *redis.Client, logger log.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		log:    log.NewHelper(log.With(logger, "module", "auth/store")),
	}
}

func (s *RedisSessionStore) SaveSession(ctx context.Context, session *model.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	subjectKey := s.subjectKey(session.Subject)
	// 索引集合至少保留到最晚的一个会话过期
	setTTL := ttl
	if cur, err := s.client.TTL(ctx, subjectKey).Result(); err == nil && cur > setTTL {
		setTTL = cur
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(session.JTI), data, ttl)
		pipe.SAdd(ctx, subjectKey, session.JTI)
		pipe.Expire(ctx, subjectKey, setTTL)
		return nil
	})
	if err != nil {
		s.log.Errorf("failed to save session: jti=%s subject=%s err=%v", session.JTI, session.Subject, err)
	}
	return err
}

func (s *RedisSessionStore) GetSession(ctx context.Context, jti string) (*model.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) ListSessions(ctx context.Context, subject string) ([]*model.Session, error) {
	subjectKey := s.subjectKey(subject)
	jtis, err := s.client.SMembers(ctx, subjectKey).Result()
	if err != nil {
		return nil, err
	}
	sessions := make([]*model.Session, 0, len(jtis))
	for _, jti := range jtis {
		session, err := s.GetSession(ctx, jti)
		if err == nil {
			sessions = append(sessions, session)
			continue
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		// 会话已自然过期，从集合中移除
		s.client.SRem(ctx, subjectKey, jti)
	}
	return sessions, nil
}

func (s *RedisSessionStore) RemoveSession(ctx context.Context, subject, jti string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, s.subjectKey(subject), jti)
		pipe.Del(ctx, s.sessionKey(jti))
		return nil
	})
	return err
}

func (s *RedisSessionStore) RemoveSessions(ctx context.Context, subject string) error {
	subjectKey := s.subjectKey(subject)
	jtis, err := s.client.SMembers(ctx, subjectKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, s.sessionKey(jti))
	}
	keys = append(keys, subjectKey)
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisSessionStore) sessionKey(jti string) string {
	return fmt.Sprintf("auth:session:%s", jti)
}

func (s *RedisSessionStore) subjectKey(subject string) string {
	return fmt.Sprintf("auth:subject:%s:sessions", subject)
}
