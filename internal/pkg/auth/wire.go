package auth

import (
	"fmt"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth/store"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/metrics"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/token"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

var ProviderSet = wire.NewSet(
	NewTokenCodec,
	NewRequestAuthenticator,
	NewPathAccessConfigFromConf,
	NewSessionStore,
	wire.Bind(new(RevocationChecker), new(*revocation.Registry)),
)

func NewTokenCodec(c *conf.App) (*token.Codec, error) {
	if c == nil || c.Auth == nil || c.Auth.Jwt == nil {
		return nil, fmt.Errorf("app.auth.jwt must be configured")
	}
	var opts []token.Option
	if c.Auth.Jwt.RefreshGrace != nil {
		opts = append(opts, token.WithRefreshGrace(c.Auth.Jwt.RefreshGrace.AsDuration()))
	}
	return token.NewCodec(c.Auth.Jwt.Secret, opts...)
}

func NewRequestAuthenticator(codec *token.Codec, registry RevocationChecker, directory PrincipalLoader, m *metrics.Metrics, logger log.Logger) *Authenticator {
	return NewAuthenticator(codec, registry, directory, m.RejectionCounter(), logger)
}

func NewPathAccessConfigFromConf(c *conf.App) (*PathAccessConfig, error) {
	if c == nil || c.Auth == nil {
		return nil, fmt.Errorf("app.auth must be configured")
	}
	return NewPathAccessConfig(c.Auth.PublicPaths, c.Auth.AdminPaths, c.Auth.AdminRole), nil
}

func NewSessionStore(client *redis.Client, logger log.Logger) store.SessionStore {
	return store.NewRedisSessionStore(client, logger)
}
