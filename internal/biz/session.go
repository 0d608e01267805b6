package biz

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth/model"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth/store"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/metrics"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/token"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL = 24 * time.Hour

	claimUserID = "uid"
	claimRoles  = "roles"
)

var (
	ErrTooManyRevocations  = kerrors.New(http.StatusTooManyRequests, "TOO_MANY_REVOCATIONS", "撤销过于频繁，请稍后再试")
	ErrTokenNotRefreshable = kerrors.Unauthorized("TOKEN_NOT_REFRESHABLE", "Token 已超出可刷新时间，请重新登录")
	ErrRevocationNotFound  = kerrors.NotFound("REVOCATION_NOT_FOUND", "撤销记录不存在")
	ErrInvalidReason       = kerrors.BadRequest("INVALID_REASON", "无效的撤销原因")
	ErrInvalidJTI          = kerrors.BadRequest("INVALID_JTI", "jti 不能为空")
	ErrRevocationFailed    = kerrors.ServiceUnavailable("REVOCATION_UNAVAILABLE", "撤销服务暂不可用")
)

// IssuedToken 签发结果
type IssuedToken struct {
	Token     string
	TokenType string
	TokenID   string
	ExpiresAt time.Time
}

// RevocationStats 撤销统计
type RevocationStats struct {
	Total    int64
	ByReason map[revocation.Reason]int64
}

type SessionUseCase struct {
	codec       *token.Codec
	ttl         time.Duration
	registry    Revoker
	sessions    store.SessionStore
	users       UserRepo
	limiter     RevocationLimiter
	revocations *prometheus.CounterVec
	now         func() time.Time
	log         *log.Helper
}

func NewSessionUseCase(
	c *conf.App,
	codec *token.Codec,
	registry Revoker,
	sessions store.SessionStore,
	users UserRepo,
	limiter RevocationLimiter,
	m *metrics.Metrics,
	logger log.Logger,
) *SessionUseCase {
	ttl := DefaultTokenTTL
	if c.Auth != nil && c.Auth.Jwt != nil && c.Auth.Jwt.Ttl != nil && c.Auth.Jwt.Ttl.AsDuration() > 0 {
		ttl = c.Auth.Jwt.Ttl.AsDuration()
	}
	uc := &SessionUseCase{
		codec:    codec,
		ttl:      ttl,
		registry: registry,
		sessions: sessions,
		users:    users,
		limiter:  limiter,
		now:      time.Now,
		log:      log.NewHelper(log.With(logger, "module", "biz/session")),
	}
	if m != nil {
		uc.revocations = m.Revocations
	}
	return uc
}

// Login 校验用户名密码并签发令牌
func (uc *SessionUseCase) Login(ctx context.Context, username, password string) (*IssuedToken, error) {
	user, err := uc.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		uc.log.Infof("login failed: username=%s", username)
		return nil, ErrInvalidCredentials
	}
	if !user.IsAvailable {
		return nil, ErrUserDisabled
	}
	return uc.issue(ctx, user)
}

// Refresh 用仍在刷新窗口内的令牌换取新令牌，旧令牌随即撤销
func (uc *SessionUseCase) Refresh(ctx context.Context, raw string) (*IssuedToken, error) {
	if !uc.codec.CanBeRefreshed(raw) {
		return nil, ErrTokenNotRefreshable
	}
	claims, err := uc.codec.Parse(raw)
	if err != nil && token.KindOf(err) != token.KindExpired {
		return nil, ErrTokenNotRefreshable
	}

	revoked, err := uc.registry.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, auth.ErrTokenProcessing.WithCause(err)
	}
	if revoked {
		uc.log.Warnf("refresh with revoked token: subject=%s jti=%s", claims.Subject, claims.ID)
		return nil, auth.ErrTokenRevoked
	}

	// 先撤销再签发，并发刷新同一令牌时只有首次登记者能拿到新令牌。
	// 旧令牌在刷新窗口结束前都可能被再次用于刷新，撤销记录需保留到窗口结束
	rotated := revocation.Entry{
		JTI:       claims.ID,
		Subject:   claims.Subject,
		Reason:    revocation.ReasonTokenRotation,
		ExpiresAt: claims.ExpiresAt.Add(uc.codec.RefreshGrace()),
	}
	inserted, err := uc.registry.TryRevoke(ctx, rotated)
	switch {
	case err == nil:
	case errors.Is(err, revocation.ErrUnavailable):
		uc.log.Errorf("revocation not persisted: jti=%s subject=%s err=%v", claims.ID, claims.Subject, err)
	default:
		return nil, ErrRevocationFailed.WithCause(err)
	}
	if !inserted {
		uc.log.Warnf("concurrent refresh of one token: subject=%s jti=%s", claims.Subject, claims.ID)
		return nil, auth.ErrTokenRevoked
	}
	if uc.revocations != nil {
		uc.revocations.WithLabelValues(string(rotated.Reason)).Inc()
	}

	user, err := uc.users.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsAvailable {
		return nil, ErrUserDisabled
	}
	if err := uc.sessions.RemoveSession(ctx, claims.Subject, claims.ID); err != nil {
		uc.log.Warnf("failed to remove rotated session: jti=%s err=%v", claims.ID, err)
	}
	return uc.issue(ctx, user)
}

// Logout 撤销当前令牌，匿名请求直接成功
func (uc *SessionUseCase) Logout(ctx context.Context, id *auth.Identity) error {
	if id == nil {
		return nil
	}
	if err := uc.checkRate(ctx, id.Subject); err != nil {
		return err
	}
	if err := uc.revoke(ctx, revocation.Entry{
		JTI:       id.TokenID,
		Subject:   id.Subject,
		Reason:    revocation.ReasonLogout,
		ExpiresAt: id.ExpiresAt,
	}); err != nil {
		return err
	}
	if err := uc.sessions.RemoveSession(ctx, id.Subject, id.TokenID); err != nil {
		uc.log.Warnf("failed to remove session: jti=%s err=%v", id.TokenID, err)
	}
	uc.log.Infof("logged out: subject=%s jti=%s", id.Subject, id.TokenID)
	return nil
}

// LogoutAll 撤销当前用户所有已签发的令牌
func (uc *SessionUseCase) LogoutAll(ctx context.Context, id *auth.Identity) (int, error) {
	if id == nil {
		return 0, auth.ErrAuthenticationRequired
	}
	if err := uc.checkRate(ctx, id.Subject); err != nil {
		return 0, err
	}
	n, err := uc.RevokeSubject(ctx, id.Subject, revocation.ReasonLogout)
	if err != nil {
		return n, err
	}
	// 当前令牌可能不在会话索引中（如索引写入失败），单独撤销
	if err := uc.revoke(ctx, revocation.Entry{
		JTI:       id.TokenID,
		Subject:   id.Subject,
		Reason:    revocation.ReasonLogout,
		ExpiresAt: id.ExpiresAt,
	}); err != nil {
		return n, err
	}
	return n, nil
}

// RevokeSubject 撤销某个用户所有未过期的会话，用于修改密码、锁定账号等场景
func (uc *SessionUseCase) RevokeSubject(ctx context.Context, subject string, reason revocation.Reason) (int, error) {
	sessions, err := uc.sessions.ListSessions(ctx, subject)
	if err != nil {
		return 0, err
	}
	now := uc.now()
	revoked := 0
	for _, s := range sessions {
		if !s.Active(now) {
			continue
		}
		if err := uc.revoke(ctx, revocation.Entry{
			JTI:       s.JTI,
			Subject:   subject,
			Reason:    reason,
			ExpiresAt: s.ExpiresAt,
		}); err != nil {
			return revoked, err
		}
		revoked++
	}
	if err := uc.sessions.RemoveSessions(ctx, subject); err != nil {
		uc.log.Warnf("failed to clear sessions: subject=%s err=%v", subject, err)
	}
	uc.log.Infof("revoked %d sessions: subject=%s reason=%s", revoked, subject, reason)
	return revoked, nil
}

// AdminRevoke 管理员按 jti 撤销，未知令牌的过期时间按最长有效期估计
func (uc *SessionUseCase) AdminRevoke(ctx context.Context, jti string, reason revocation.Reason) (*revocation.Entry, error) {
	if jti == "" {
		return nil, ErrInvalidJTI
	}
	if reason == "" {
		reason = revocation.ReasonAdminRevoke
	}
	entry := revocation.Entry{
		JTI:       jti,
		Reason:    reason,
		RevokedAt: uc.now(),
		ExpiresAt: uc.now().Add(uc.ttl),
	}
	session, err := uc.sessions.GetSession(ctx, jti)
	switch {
	case err == nil:
		entry.Subject = session.Subject
		entry.ExpiresAt = session.ExpiresAt
	case errors.Is(err, store.ErrSessionNotFound):
	default:
		uc.log.Warnf("session lookup failed, using default expiry: jti=%s err=%v", jti, err)
	}
	if err := uc.revoke(ctx, entry); err != nil {
		return nil, err
	}
	if entry.Subject != "" {
		if err := uc.sessions.RemoveSession(ctx, entry.Subject, jti); err != nil {
			uc.log.Warnf("failed to remove session: jti=%s err=%v", jti, err)
		}
	}
	uc.log.Infof("admin revoked token: jti=%s subject=%s reason=%s", jti, entry.Subject, reason)
	return &entry, nil
}

func (uc *SessionUseCase) RevocationInfo(ctx context.Context, jti string) (*revocation.Entry, error) {
	e, err := uc.registry.Lookup(ctx, jti)
	if err != nil {
		if errors.Is(err, revocation.ErrNotFound) {
			return nil, ErrRevocationNotFound
		}
		return nil, ErrRevocationFailed.WithCause(err)
	}
	return e, nil
}

func (uc *SessionUseCase) RevocationStats(ctx context.Context) (*RevocationStats, error) {
	counts, err := uc.registry.Stats(ctx)
	if err != nil {
		uc.log.Warnf("revocation stats from local registry only: %v", err)
	}
	stats := &RevocationStats{ByReason: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (uc *SessionUseCase) issue(ctx context.Context, user *User) (*IssuedToken, error) {
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	raw, claims, err := uc.codec.Issue(user.Username, map[string]interface{}{
		claimUserID: user.ID,
		claimRoles:  roles,
	}, uc.ttl)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.SaveSession(ctx, &model.Session{
		JTI:       claims.ID,
		Subject:   claims.Subject,
		UserID:    user.ID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}); err != nil {
		// 索引只影响“撤销全部会话”，不阻断登录
		uc.log.Errorf("failed to index session: subject=%s jti=%s err=%v", claims.Subject, claims.ID, err)
	}
	return &IssuedToken{
		Token:     raw,
		TokenType: "Bearer",
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (uc *SessionUseCase) revoke(ctx context.Context, e revocation.Entry) error {
	if err := uc.registry.Revoke(ctx, e); err != nil {
		if errors.Is(err, revocation.ErrUnavailable) {
			// 本进程已生效，持久化失败只记录
			uc.log.Errorf("revocation not persisted: jti=%s subject=%s err=%v", e.JTI, e.Subject, err)
		} else {
			return ErrRevocationFailed.WithCause(err)
		}
	}
	if uc.revocations != nil {
		uc.revocations.WithLabelValues(string(e.Reason)).Inc()
	}
	return nil
}

func (uc *SessionUseCase) checkRate(ctx context.Context, subject string) error {
	if uc.limiter == nil {
		return nil
	}
	ok, err := uc.limiter.Allow(ctx, subject)
	if err != nil {
		uc.log.Warnf("revocation rate limiter unavailable: subject=%s err=%v", subject, err)
		return nil
	}
	if !ok {
		uc.log.Warnf("revocation rate limit exceeded: subject=%s", subject)
		return ErrTooManyRevocations
	}
	return nil
}
