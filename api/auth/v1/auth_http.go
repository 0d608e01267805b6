package v1

import (
	"context"

	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationAuthLogin     = "/blog.auth.v1.Auth/Login"
	OperationAuthRefresh   = "/blog.auth.v1.Auth/Refresh"
	OperationAuthLogout    = "/blog.auth.v1.Auth/Logout"
	OperationAuthLogoutAll = "/blog.auth.v1.Auth/LogoutAll"
	OperationAuthMe        = "/blog.auth.v1.Auth/Me"
)

type AuthHTTPServer interface {
	Login(context.Context, *LoginRequest) (*TokenReply, error)
	Refresh(context.Context, *RefreshRequest) (*TokenReply, error)
	Logout(context.Context, *LogoutRequest) (*LogoutReply, error)
	LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllReply, error)
	Me(context.Context, *MeRequest) (*MeReply, error)
}

func RegisterAuthHTTPServer(s *http.Server, srv AuthHTTPServer) {
	r := s.Route("/")
	r.POST("/api/v1/auth/login", authLoginHandler(srv))
	r.POST("/api/v1/auth/refresh", authRefreshHandler(srv))
	r.POST("/api/v1/auth/logout", authLogoutHandler(srv))
	r.POST("/api/v1/auth/logout-all", authLogoutAllHandler(srv))
	r.GET("/api/v1/auth/me", authMeHandler(srv))
}

func authLoginHandler(srv AuthHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in LoginRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationAuthLogin)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Login(ctx, req.(*LoginRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*TokenReply))
	}
}

func authRefreshHandler(srv AuthHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RefreshRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationAuthRefresh)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Refresh(ctx, req.(*RefreshRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*TokenReply))
	}
}

func authLogoutHandler(srv AuthHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in LogoutRequest
		http.SetOperation(ctx, OperationAuthLogout)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Logout(ctx, req.(*LogoutRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*LogoutReply))
	}
}

func authLogoutAllHandler(srv AuthHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in LogoutAllRequest
		http.SetOperation(ctx, OperationAuthLogoutAll)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.LogoutAll(ctx, req.(*LogoutAllRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*LogoutAllReply))
	}
}

func authMeHandler(srv AuthHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in MeRequest
		http.SetOperation(ctx, OperationAuthMe)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Me(ctx, req.(*MeRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*MeReply))
	}
}
