package store

import (
	"context"
	"errors"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth/model"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore 会话索引，只记录签发过的令牌，不参与请求鉴权
type SessionStore interface {
	SaveSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, jti string) (*model.Session, error)
	ListSessions(ctx context.Context, subject string) ([]*model.Session, error)
	RemoveSession(ctx context.Context, subject, jti string) error
	RemoveSessions(ctx context.Context, subject string) error
}
