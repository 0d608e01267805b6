package service

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	pb "github.com/sober-studio/blog-api-go-kratos/api/auth/v1"
	"github.com/sober-studio/blog-api-go-kratos/internal/biz"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth"
)

type AuthService struct {
	uc  *biz.SessionUseCase
	log *log.Helper
}

func NewAuthService(uc *biz.SessionUseCase, logger log.Logger) *AuthService {
	return &AuthService{uc: uc, log: log.NewHelper(log.With(logger, "module", "service/auth"))}
}

func (s *AuthService) Login(ctx context.Context, req *pb.LoginRequest) (*pb.TokenReply, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, errors.BadRequest("INVALID_ARGUMENT", "用户名和密码不能为空")
	}
	issued, err := s.uc.Login(ctx, username, req.Password)
	if err != nil {
		return nil, err
	}
	return tokenReply(issued), nil
}

// Refresh 令牌从请求体读取，过期但仍在刷新窗口内的令牌也可以换新
func (s *AuthService) Refresh(ctx context.Context, req *pb.RefreshRequest) (*pb.TokenReply, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(req.Token, "Bearer "))
	if raw == "" {
		return nil, errors.BadRequest("INVALID_ARGUMENT", "token 不能为空")
	}
	issued, err := s.uc.Refresh(ctx, raw)
	if err != nil {
		return nil, err
	}
	return tokenReply(issued), nil
}

func (s *AuthService) Logout(ctx context.Context, _ *pb.LogoutRequest) (*pb.LogoutReply, error) {
	id, _ := auth.FromContext(ctx)
	if err := s.uc.Logout(ctx, id); err != nil {
		return nil, err
	}
	return &pb.LogoutReply{Message: "已退出登录"}, nil
}

func (s *AuthService) LogoutAll(ctx context.Context, _ *pb.LogoutAllRequest) (*pb.LogoutAllReply, error) {
	id, _ := auth.FromContext(ctx)
	n, err := s.uc.LogoutAll(ctx, id)
	if err != nil {
		return nil, err
	}
	return &pb.LogoutAllReply{Revoked: int32(n)}, nil
}

func (s *AuthService) Me(ctx context.Context, _ *pb.MeRequest) (*pb.MeReply, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return nil, auth.ErrAuthenticationRequired
	}
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}
	return &pb.MeReply{
		Subject:   id.Subject,
		UserId:    id.UserID,
		Roles:     roles,
		TokenId:   id.TokenID,
		ExpiresAt: id.ExpiresAt.UnixMilli(),
	}, nil
}

func tokenReply(t *biz.IssuedToken) *pb.TokenReply {
	return &pb.TokenReply{
		Token:     t.Token,
		TokenType: t.TokenType,
		ExpiresAt: t.ExpiresAt.UnixMilli(),
	}
}
