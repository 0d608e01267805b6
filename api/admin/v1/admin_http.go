package v1

import (
	"context"

	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationAdminRevokeToken     = "/blog.admin.v1.Admin/RevokeToken"
	OperationAdminRevokeUser      = "/blog.admin.v1.Admin/RevokeUser"
	OperationAdminGetRevocation   = "/blog.admin.v1.Admin/GetRevocation"
	OperationAdminRevocationStats = "/blog.admin.v1.Admin/RevocationStats"
)

type AdminHTTPServer interface {
	RevokeToken(context.Context, *RevokeTokenRequest) (*Revocation, error)
	RevokeUser(context.Context, *RevokeUserRequest) (*RevokeUserReply, error)
	GetRevocation(context.Context, *GetRevocationRequest) (*Revocation, error)
	RevocationStats(context.Context, *RevocationStatsRequest) (*RevocationStatsReply, error)
}

func RegisterAdminHTTPServer(s *http.Server, srv AdminHTTPServer) {
	r := s.Route("/")
	r.POST("/api/v1/admin/tokens/revoke", adminRevokeTokenHandler(srv))
	r.POST("/api/v1/admin/users/{username}/revoke", adminRevokeUserHandler(srv))
	// stats 需先于 {jti} 注册
	r.GET("/api/v1/admin/revocations/stats", adminRevocationStatsHandler(srv))
	r.GET("/api/v1/admin/revocations/{jti}", adminGetRevocationHandler(srv))
}

func adminRevokeTokenHandler(srv AdminHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RevokeTokenRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationAdminRevokeToken)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.RevokeToken(ctx, req.(*RevokeTokenRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*Revocation))
	}
}

func adminRevokeUserHandler(srv AdminHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RevokeUserRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		in.Username = ctx.Vars().Get("username")
		http.SetOperation(ctx, OperationAdminRevokeUser)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.RevokeUser(ctx, req.(*RevokeUserRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*RevokeUserReply))
	}
}

func adminGetRevocationHandler(srv AdminHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := GetRevocationRequest{Jti: ctx.Vars().Get("jti")}
		http.SetOperation(ctx, OperationAdminGetRevocation)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetRevocation(ctx, req.(*GetRevocationRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*Revocation))
	}
}

func adminRevocationStatsHandler(srv AdminHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RevocationStatsRequest
		http.SetOperation(ctx, OperationAdminRevocationStats)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.RevocationStats(ctx, req.(*RevocationStatsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*RevocationStatsReply))
	}
}
