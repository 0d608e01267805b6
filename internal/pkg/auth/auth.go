package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/token"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
)

// 所有拒绝均为 401，通过 Reason 区分
var (
	ErrInvalidToken           = kerrors.Unauthorized("INVALID_TOKEN", "无效的 Token")
	ErrTokenExpired           = kerrors.Unauthorized("TOKEN_EXPIRED", "Token 已过期")
	ErrTokenMalformed         = kerrors.Unauthorized("TOKEN_MALFORMED", "Token 格式错误")
	ErrInvalidSignature       = kerrors.Unauthorized("INVALID_SIGNATURE", "Token 签名无效")
	ErrTokenRevoked           = kerrors.Unauthorized("TOKEN_REVOKED", "Token 已被撤销")
	ErrTokenProcessing        = kerrors.Unauthorized("TOKEN_PROCESSING_ERROR", "Token 处理失败")
	ErrAuthenticationRequired = kerrors.Unauthorized("INVALID_TOKEN", "需要登录")
	ErrPermissionDenied       = kerrors.Forbidden("PERMISSION_DENIED", "没有访问权限")
	ErrRequestCanceled        = kerrors.ClientClosed("REQUEST_CANCELED", "请求已取消")
)

// IsRejection 是否为令牌拒绝错误
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidToken, ErrTokenExpired, ErrTokenMalformed,
		ErrInvalidSignature, ErrTokenRevoked, ErrTokenProcessing,
	} {
		if kerrors.Is(err, target) {
			return true
		}
	}
	return false
}

// Principal 用户目录中的当前身份
type Principal struct {
	UserID    int64
	Username  string
	Roles     []string
	Available bool
}

// PrincipalLoader 用户目录
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, subject string) (*Principal, error)
}

// RevocationChecker 撤销登记表的成员检查
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Identity 请求级别的已认证身份
type Identity struct {
	Subject   string
	UserID    int64
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
	Claims    *token.Claims
}

func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

type identityKey struct{}

func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// ExtractBearer 从 Authorization 头取出令牌，非 Bearer 方案视为未携带。
// Bearer 方案下的空令牌照常返回，由格式检查拒绝。
// HTTP 头尾部空白会被裁掉，单独的 "Bearer" 同样按空令牌处理。
func ExtractBearer(header string) (string, bool) {
	if header == "Bearer" {
		return "", true
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

// Authenticator 请求认证：格式检查 -> 签名与过期 -> 撤销检查 -> 用户目录
type Authenticator struct {
	codec      *token.Codec
	registry   RevocationChecker
	directory  PrincipalLoader
	rejections *prometheus.CounterVec
	log        *log.Helper
}

func NewAuthenticator(codec *token.Codec, registry RevocationChecker, directory PrincipalLoader, rejections *prometheus.CounterVec, logger log.Logger) *Authenticator {
	return &Authenticator{
		codec:      codec,
		registry:   registry,
		directory:  directory,
		rejections: rejections,
		log:        log.NewHelper(log.With(logger, "module", "auth/authenticator")),
	}
}

// Authenticate 返回 (nil, nil) 表示匿名请求
func (a *Authenticator) Authenticate(ctx context.Context, header, remoteAddr string) (id *Identity, err error) {
	raw, ok := ExtractBearer(header)
	if !ok {
		return nil, nil
	}

	defer func() {
		if p := recover(); p != nil {
			a.log.Errorf("panic while authenticating: remote=%s panic=%v", remoteAddr, p)
			id, err = nil, a.reject(ErrTokenProcessing, fmt.Errorf("panic: %v", p))
		}
	}()

	if !token.ValidFormat(raw) {
		a.log.Warnf("rejected token with invalid format: remote=%s", remoteAddr)
		return nil, a.reject(ErrInvalidToken, nil)
	}

	claims, err := a.codec.Parse(raw)
	if err != nil {
		subject, jti := "", ""
		if claims != nil {
			subject, jti = claims.Subject, claims.ID
		}
		switch token.KindOf(err) {
		case token.KindExpired:
			a.log.Debugf("rejected expired token: subject=%s jti=%s remote=%s", subject, jti, remoteAddr)
			return nil, a.reject(ErrTokenExpired, err)
		case token.KindMalformed:
			a.log.Warnf("rejected malformed token: remote=%s err=%v", remoteAddr, err)
			return nil, a.reject(ErrTokenMalformed, err)
		case token.KindInvalidSignature:
			a.log.Warnf("rejected token with invalid signature: remote=%s err=%v", remoteAddr, err)
			return nil, a.reject(ErrInvalidSignature, err)
		default:
			a.log.Errorf("failed to process token: remote=%s err=%v", remoteAddr, err)
			return nil, a.reject(ErrTokenProcessing, err)
		}
	}

	revoked, err := a.registry.IsRevoked(ctx, claims.ID)
	if ctx.Err() != nil {
		return nil, ErrRequestCanceled.WithCause(ctx.Err())
	}
	if err != nil {
		if errors.Is(err, revocation.ErrUnavailable) {
			a.log.Errorf("revocation check unavailable: subject=%s jti=%s remote=%s err=%v", claims.Subject, claims.ID, remoteAddr, err)
		} else {
			a.log.Errorf("revocation check failed: subject=%s jti=%s remote=%s err=%v", claims.Subject, claims.ID, remoteAddr, err)
		}
		return nil, a.reject(ErrTokenProcessing, err)
	}
	if revoked {
		a.log.Warnf("rejected revoked token: subject=%s jti=%s remote=%s", claims.Subject, claims.ID, remoteAddr)
		return nil, a.reject(ErrTokenRevoked, nil)
	}

	principal, err := a.directory.LoadPrincipal(ctx, claims.Subject)
	if ctx.Err() != nil {
		return nil, ErrRequestCanceled.WithCause(ctx.Err())
	}
	switch {
	case err != nil:
		a.log.Warnf("failed to load principal: subject=%s jti=%s remote=%s err=%v", claims.Subject, claims.ID, remoteAddr, err)
		return nil, a.reject(ErrInvalidToken, err)
	case principal == nil || principal.Username != claims.Subject:
		a.log.Warnf("token subject does not match directory: subject=%s jti=%s remote=%s", claims.Subject, claims.ID, remoteAddr)
		return nil, a.reject(ErrInvalidToken, nil)
	case !principal.Available:
		a.log.Warnf("token subject is disabled: subject=%s jti=%s remote=%s", claims.Subject, claims.ID, remoteAddr)
		return nil, a.reject(ErrInvalidToken, nil)
	}

	return &Identity{
		Subject:   claims.Subject,
		UserID:    principal.UserID,
		Roles:     principal.Roles,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
		Claims:    claims,
	}, nil
}

func (a *Authenticator) reject(e *kerrors.Error, cause error) error {
	if a.rejections != nil {
		a.rejections.WithLabelValues(strings.ToLower(e.Reason)).Inc()
	}
	if cause != nil {
		return e.WithCause(cause)
	}
	return e
}
