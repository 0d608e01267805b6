package biz

import (
	"context"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

var (
	ErrUserNotFound       = kerrors.NotFound("USER_NOT_FOUND", "用户不存在")
	ErrInvalidCredentials = kerrors.Unauthorized("INVALID_CREDENTIALS", "用户名或密码错误")
	ErrUserDisabled       = kerrors.Forbidden("USER_DISABLED", "账号已被禁用")
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Roles        []string
	IsAvailable  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}
