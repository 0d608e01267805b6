package revocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound 持久化后端中不存在该 jti
	ErrNotFound = errors.New("revocation: entry not found")
	// ErrUnavailable 持久化后端不可达或超时
	ErrUnavailable = errors.New("revocation: store unavailable")
)

// Reason 撤销原因
type Reason string

const (
	ReasonLogout         Reason = "LOGOUT"
	ReasonAdminRevoke    Reason = "ADMIN_REVOKE"
	ReasonPasswordChange Reason = "PASSWORD_CHANGE"
	ReasonAccountLocked  Reason = "ACCOUNT_LOCKED"
	ReasonSecurityBreach Reason = "SECURITY_BREACH"
	ReasonTokenRotation  Reason = "TOKEN_ROTATION"
)

var reasons = []Reason{
	ReasonLogout,
	ReasonAdminRevoke,
	ReasonPasswordChange,
	ReasonAccountLocked,
	ReasonSecurityBreach,
	ReasonTokenRotation,
}

// ParseReason 大小写不敏感
func ParseReason(s string) (Reason, error) {
	for _, r := range reasons {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown revocation reason %q", s)
}

// Entry 撤销记录。ExpiresAt 为令牌的自然过期时间，过期后记录即可回收
type Entry struct {
	JTI       string    `json:"jti"`
	Subject   string    `json:"subject"`
	Reason    Reason    `json:"reason"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired 自然过期时间已过
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// Store 撤销记录的持久化后端
type Store interface {
	// Get 未找到返回 ErrNotFound
	Get(ctx context.Context, jti string) (*Entry, error)
	// Set 插入或覆盖
	Set(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, jti string) error
	// DeleteExpired 删除 ExpiresAt 早于 before 的记录，返回删除数量
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	// ListActive 返回所有未过期的记录
	ListActive(ctx context.Context, now time.Time) ([]*Entry, error)
	// CountActive 按原因统计未过期的记录
	CountActive(ctx context.Context, now time.Time) (map[Reason]int64, error)
}
