package service

import (
	"context"
	"testing"
	"time"

	pb "github.com/sober-studio/blog-api-go-kratos/api/auth/v1"
	"github.com/sober-studio/blog-api-go-kratos/internal/biz"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReason(t *testing.T) {
	r, err := parseReason("", revocation.ReasonAdminRevoke)
	require.NoError(t, err)
	assert.Equal(t, revocation.ReasonAdminRevoke, r)

	r, err = parseReason("password_change", revocation.ReasonAdminRevoke)
	require.NoError(t, err)
	assert.Equal(t, revocation.ReasonPasswordChange, r)

	_, err = parseReason("whatever", revocation.ReasonAdminRevoke)
	assert.True(t, kerrors.Is(err, biz.ErrInvalidReason))
}

func TestMe(t *testing.T) {
	s := NewAuthService(nil, log.DefaultLogger)

	_, err := s.Me(context.Background(), &pb.MeRequest{})
	assert.True(t, kerrors.Is(err, auth.ErrAuthenticationRequired))

	exp := time.Unix(1700000000, 0)
	ctx := auth.NewContext(context.Background(), &auth.Identity{
		Subject:   "alice",
		UserID:    7,
		TokenID:   "jti-1",
		ExpiresAt: exp,
	})
	reply, err := s.Me(ctx, &pb.MeRequest{})
	require.NoError(t, err)
	assert.Equal(t, "alice", reply.Subject)
	assert.Equal(t, int64(7), reply.UserId)
	assert.Equal(t, []string{}, reply.Roles)
	assert.Equal(t, exp.UnixMilli(), reply.ExpiresAt)
}

func TestLoginValidatesInput(t *testing.T) {
	s := NewAuthService(nil, log.DefaultLogger)

	_, err := s.Login(context.Background(), &pb.LoginRequest{Username: "  ", Password: "x"})
	assert.Equal(t, 400, int(kerrors.Code(err)))

	_, err = s.Refresh(context.Background(), &pb.RefreshRequest{Token: "Bearer "})
	assert.Equal(t, 400, int(kerrors.Code(err)))
}
