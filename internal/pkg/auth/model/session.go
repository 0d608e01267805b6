package model

import "time"

// Session 已签发令牌的索引记录，撤销某个主体的全部令牌时使用
type Session struct {
	JTI       string    `json:"jti"`
	Subject   string    `json:"subject"` // 用户名
	UserID    int64     `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Active(now time.Time) bool {
	return !s.ExpiresAt.Before(now)
}
