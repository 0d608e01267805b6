package data

import (
	"context"
	"errors"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/data/model"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ revocation.Store = (*GormRevocationStore)(nil)

// GormRevocationStore 基于数据库的撤销记录，时间统一按 UTC 存储
type GormRevocationStore struct {
	data *Data
}

func NewGormRevocationStore(data *Data) *GormRevocationStore {
	return &GormRevocationStore{data: data}
}

func (s *GormRevocationStore) Get(ctx context.Context, jti string) (*revocation.Entry, error) {
	var row model.RevokedToken
	if err := s.data.DB(ctx).Where("jti = ?", jti).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, revocation.ErrNotFound
		}
		return nil, err
	}
	return toEntry(&row), nil
}

// Set 已存在时保留原记录
func (s *GormRevocationStore) Set(ctx context.Context, e *revocation.Entry) error {
	row := &model.RevokedToken{
		JTI:       e.JTI,
		Subject:   e.Subject,
		Reason:    string(e.Reason),
		RevokedAt: e.RevokedAt.UTC(),
		ExpiresAt: e.ExpiresAt.UTC(),
	}
	return s.data.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "jti"}},
		DoNothing: true,
	}).Create(row).Error
}

func (s *GormRevocationStore) Delete(ctx context.Context, jti string) error {
	return s.data.DB(ctx).Unscoped().Where("jti = ?", jti).Delete(&model.RevokedToken{}).Error
}

func (s *GormRevocationStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := s.data.DB(ctx).Unscoped().Where("expires_at < ?", before.UTC()).Delete(&model.RevokedToken{})
	return res.RowsAffected, res.Error
}

func (s *GormRevocationStore) ListActive(ctx context.Context, now time.Time) ([]*revocation.Entry, error) {
	var rows []*model.RevokedToken
	if err := s.data.DB(ctx).Where("expires_at >= ?", now.UTC()).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]*revocation.Entry, len(rows))
	for i, row := range rows {
		entries[i] = toEntry(row)
	}
	return entries, nil
}

func (s *GormRevocationStore) CountActive(ctx context.Context, now time.Time) (map[revocation.Reason]int64, error) {
	var rows []struct {
		Reason string
		Total  int64
	}
	err := s.data.DB(ctx).Model(&model.RevokedToken{}).
		Select("reason, count(*) AS total").
		Where("expires_at >= ?", now.UTC()).
		Group("reason").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[revocation.Reason]int64, len(rows))
	for _, row := range rows {
		counts[revocation.Reason(row.Reason)] = row.Total
	}
	return counts, nil
}

func toEntry(row *model.RevokedToken) *revocation.Entry {
	return &revocation.Entry{
		JTI:       row.JTI,
		Subject:   row.Subject,
		Reason:    revocation.Reason(row.Reason),
		RevokedAt: row.RevokedAt,
		ExpiresAt: row.ExpiresAt,
	}
}
