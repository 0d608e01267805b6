package data

import (
	"context"
	"errors"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/biz"
	"github.com/sober-studio/blog-api-go-kratos/internal/data/model"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// 用户目录缓存时长，账号禁用、改名最迟在该时长后对认证生效
const principalCacheTTL = 30 * time.Second

var (
	_ biz.UserRepo         = (*userRepo)(nil)
	_ auth.PrincipalLoader = (*principalLoader)(nil)
)

type userRepo struct {
	data *Data
	log  *log.Helper
}

func NewUserRepo(data *Data, logger log.Logger) biz.UserRepo {
	return &userRepo{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/user")),
	}
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (*biz.User, error) {
	var user model.User
	if err := r.data.DB(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biz.ErrUserNotFound
		}
		return nil, err
	}
	return r.toBiz(&user), nil
}

func (r *userRepo) toBiz(u *model.User) *biz.User {
	return &biz.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Roles:        u.RoleList(),
		IsAvailable:  u.Available(),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// principalLoader 认证热路径上的用户目录，带短期缓存
type principalLoader struct {
	users biz.UserRepo
	cache *ristretto.Cache[string, *auth.Principal]
	ttl   time.Duration
}

func NewPrincipalLoader(users biz.UserRepo) (auth.PrincipalLoader, func(), error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *auth.Principal]{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
	})
	if err != nil {
		return nil, nil, err
	}
	return &principalLoader{users: users, cache: cache, ttl: principalCacheTTL}, cache.Close, nil
}

func (l *principalLoader) LoadPrincipal(ctx context.Context, subject string) (*auth.Principal, error) {
	if p, ok := l.cache.Get(subject); ok {
		return p, nil
	}
	user, err := l.users.GetUserByUsername(ctx, subject)
	if err != nil {
		return nil, err
	}
	p := &auth.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		Roles:     user.Roles,
		Available: user.IsAvailable,
	}
	l.cache.SetWithTTL(subject, p, 1, l.ttl)
	return p, nil
}
