package auth

import (
	"context"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/debug"
)

// PathAccessConfig 路径访问配置，路径为 kratos operation，以 "/" 结尾时按前缀匹配
type PathAccessConfig struct {
	// 无需认证的路径
	PublicPaths map[string]struct{}
	// 需要管理员角色的路径
	AdminPaths map[string]struct{}
	AdminRole  string
}

// NewPathAccessConfig 创建路径访问配置
func NewPathAccessConfig(publicPaths, adminPaths []string, adminRole string) *PathAccessConfig {
	c := &PathAccessConfig{
		PublicPaths: make(map[string]struct{}, len(publicPaths)),
		AdminPaths:  make(map[string]struct{}, len(adminPaths)),
		AdminRole:   adminRole,
	}
	for _, path := range publicPaths {
		c.PublicPaths[path] = struct{}{}
	}
	for _, path := range adminPaths {
		c.AdminPaths[path] = struct{}{}
	}
	return c
}

// IsPublicPath 判断是否为公开路径
func IsPublicPath(operation string, config *PathAccessConfig) bool {
	return Match(operation, config.PublicPaths)
}

// Match 判断路径是否匹配
func Match(operation string, paths map[string]struct{}) bool {
	// 路径匹配
	if _, ok := paths[operation]; ok {
		return true
	}
	// 前缀匹配
	for path := range paths {
		if len(path) > 0 && path[len(path)-1] == '/' && len(operation) >= len(path) {
			if operation[:len(path)] == path {
				return true
			}
		}
	}
	return false
}

func remoteAddr(tr transport.Transporter) string {
	if ht, ok := tr.(khttp.Transporter); ok {
		if ip := ht.RequestHeader().Get("X-Real-IP"); ip != "" {
			return ip
		}
		return ht.Request().RemoteAddr
	}
	return tr.Endpoint()
}

// Server 对每个请求执行认证，认证成功时把身份放入 context，未携带令牌时匿名放行
func Server(authn *Authenticator) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}
			id, err := authn.Authenticate(ctx, tr.RequestHeader().Get("Authorization"), remoteAddr(tr))
			if err != nil {
				return nil, err
			}
			if id != nil {
				ctx = NewContext(ctx, id)
				ctx = debug.NewContext(ctx, "subject", id.Subject)
			}
			return handler(ctx, req)
		}
	}
}

// RequireIdentity 拒绝匿名请求
func RequireIdentity() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if _, ok := FromContext(ctx); !ok {
				return nil, ErrAuthenticationRequired
			}
			return handler(ctx, req)
		}
	}
}

// RequireRole 要求身份拥有指定角色
func RequireRole(role string) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			id, ok := FromContext(ctx)
			if !ok {
				return nil, ErrAuthenticationRequired
			}
			if !id.HasRole(role) {
				return nil, ErrPermissionDenied
			}
			return handler(ctx, req)
		}
	}
}

// Middleware 创建认证中间件：所有路径都做令牌认证，非公开路径要求已认证，管理路径要求管理员角色
func Middleware(authn *Authenticator, config *PathAccessConfig) middleware.Middleware {
	return middleware.Chain(
		Server(authn),
		selector.Server(RequireIdentity()).Match(func(ctx context.Context, operation string) bool {
			return !IsPublicPath(operation, config)
		}).Build(),
		selector.Server(RequireRole(config.AdminRole)).Match(func(ctx context.Context, operation string) bool {
			return Match(operation, config.AdminPaths)
		}).Build(),
	)
}
