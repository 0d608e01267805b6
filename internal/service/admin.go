package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	pb "github.com/sober-studio/blog-api-go-kratos/api/admin/v1"
	"github.com/sober-studio/blog-api-go-kratos/internal/biz"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"
)

type AdminService struct {
	uc  *biz.SessionUseCase
	log *log.Helper
}

func NewAdminService(uc *biz.SessionUseCase, logger log.Logger) *AdminService {
	return &AdminService{uc: uc, log: log.NewHelper(log.With(logger, "module", "service/admin"))}
}

func (s *AdminService) RevokeToken(ctx context.Context, req *pb.RevokeTokenRequest) (*pb.Revocation, error) {
	reason, err := parseReason(req.Reason, revocation.ReasonAdminRevoke)
	if err != nil {
		return nil, err
	}
	e, err := s.uc.AdminRevoke(ctx, req.Jti, reason)
	if err != nil {
		return nil, err
	}
	return toRevocation(e), nil
}

func (s *AdminService) RevokeUser(ctx context.Context, req *pb.RevokeUserRequest) (*pb.RevokeUserReply, error) {
	reason, err := parseReason(req.Reason, revocation.ReasonAdminRevoke)
	if err != nil {
		return nil, err
	}
	n, err := s.uc.RevokeSubject(ctx, req.Username, reason)
	if err != nil {
		return nil, err
	}
	return &pb.RevokeUserReply{Revoked: int32(n)}, nil
}

func (s *AdminService) GetRevocation(ctx context.Context, req *pb.GetRevocationRequest) (*pb.Revocation, error) {
	if req.Jti == "" {
		return nil, biz.ErrInvalidJTI
	}
	e, err := s.uc.RevocationInfo(ctx, req.Jti)
	if err != nil {
		return nil, err
	}
	return toRevocation(e), nil
}

func (s *AdminService) RevocationStats(ctx context.Context, _ *pb.RevocationStatsRequest) (*pb.RevocationStatsReply, error) {
	stats, err := s.uc.RevocationStats(ctx)
	if err != nil {
		return nil, err
	}
	byReason := make(map[string]int64, len(stats.ByReason))
	for r, n := range stats.ByReason {
		byReason[string(r)] = n
	}
	return &pb.RevocationStatsReply{Total: stats.Total, ByReason: byReason}, nil
}

// parseReason 为空时使用默认原因
func parseReason(s string, def revocation.Reason) (revocation.Reason, error) {
	if s == "" {
		return def, nil
	}
	r, err := revocation.ParseReason(s)
	if err != nil {
		return "", biz.ErrInvalidReason
	}
	return r, nil
}

func toRevocation(e *revocation.Entry) *pb.Revocation {
	return &pb.Revocation{
		Jti:       e.JTI,
		Subject:   e.Subject,
		Reason:    string(e.Reason),
		RevokedAt: e.RevokedAt.UnixMilli(),
		ExpiresAt: e.ExpiresAt.UnixMilli(),
	}
}
