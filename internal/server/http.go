package server

import (
	adminV1 "github.com/sober-studio/blog-api-go-kratos/api/admin/v1"
	authV1 "github.com/sober-studio/blog-api-go-kratos/api/auth/v1"
	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/debug"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/render"
	"github.com/sober-studio/blog-api-go-kratos/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c *conf.Server,
	authn *auth.Authenticator,
	access *auth.PathAccessConfig,
	authService *service.AuthService,
	adminService *service.AdminService,
	logger log.Logger,
) *http.Server {

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
			auth.Middleware(authn, access),
		),
		http.Filter(debug.Filter),
		http.ResponseEncoder(render.ResponseEncoder),
		http.ErrorEncoder(render.ErrorEncoder),
	}

	if c.Http != nil {
		if c.Http.Network != "" {
			opts = append(opts, http.Network(c.Http.Network))
		}
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != nil {
			opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
		}
	}

	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.Handler())
	authV1.RegisterAuthHTTPServer(srv, authService)
	adminV1.RegisterAdminHTTPServer(srv, adminService)

	return srv
}
