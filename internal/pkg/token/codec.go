package token

import (
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultRefreshGrace 过期后仍可换发新令牌的时间窗口
	DefaultRefreshGrace = time.Hour
)

var (
	ErrEmptySecret  = errors.New("token: signing secret must not be empty")
	ErrEmptySubject = errors.New("token: subject must not be empty")

	errShape        = errors.New("expected three dot-separated segments")
	errMissingClaim = errors.New("sub and jti are required")
)

// Codec 负责令牌的签发与解析，持有签名密钥
type Codec struct {
	secret []byte
	method jwtv5.SigningMethod
	grace  time.Duration
	now    func() time.Time
	parser *jwtv5.Parser
}

type Option func(*Codec)

// WithSigningMethod 替换签名算法，默认 HS256
func WithSigningMethod(m jwtv5.SigningMethod) Option {
	return func(c *Codec) {
		c.method = m
	}
}

func WithRefreshGrace(d time.Duration) Option {
	return func(c *Codec) {
		c.grace = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	c := &Codec{
		secret: []byte(secret),
		method: jwtv5.SigningMethodHS256,
		grace:  DefaultRefreshGrace,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{c.method.Alg()}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(c.now),
	)
	return c, nil
}

// Issue 签发令牌，每次调用生成新的 jti
func (c *Codec) Issue(subject string, extra map[string]interface{}, ttl time.Duration) (string, *Claims, error) {
	if subject == "" {
		return "", nil, ErrEmptySubject
	}
	now := c.now().Truncate(time.Second)
	claims := &Claims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Extra:     make(map[string]interface{}, len(extra)),
	}
	for k, v := range extra {
		if _, ok := reservedClaims[k]; ok {
			continue
		}
		claims.Extra[k] = v
	}
	tokenStr, err := jwtv5.NewWithClaims(c.method, claims.toMap()).SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenStr, claims, nil
}

// Parse 校验结构、签名与有效期。
// 过期时同时返回声明和 KindExpired 错误，供刷新判断使用。
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	if !ValidFormat(tokenStr) {
		return nil, newError(KindMalformed, errShape)
	}

	m := jwtv5.MapClaims{}
	_, err := c.parser.ParseWithClaims(tokenStr, m, c.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, jwtv5.ErrTokenMalformed):
			return nil, newError(KindMalformed, err)
		case errors.Is(err, jwtv5.ErrTokenSignatureInvalid), errors.Is(err, jwtv5.ErrTokenUnverifiable):
			return nil, newError(KindInvalidSignature, err)
		case errors.Is(err, jwtv5.ErrTokenExpired):
			claims, cerr := claimsFromMap(m)
			if cerr != nil {
				return nil, newError(KindMalformed, cerr)
			}
			return claims, newError(KindExpired, err)
		default:
			return nil, newError(KindMalformed, err)
		}
	}

	claims, err := claimsFromMap(m)
	if err != nil {
		return nil, newError(KindMalformed, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, newError(KindMalformed, errMissingClaim)
	}
	return claims, nil
}

// CanBeRefreshed 签名有效且过期时间不早于 now-grace
func (c *Codec) CanBeRefreshed(tokenStr string) bool {
	claims, err := c.Parse(tokenStr)
	switch KindOf(err) {
	case KindNone:
		return err == nil
	case KindExpired:
		return claims.ExpiresAt.After(c.now().Add(-c.grace))
	default:
		return false
	}
}

// RefreshGrace 返回刷新宽限窗口
func (c *Codec) RefreshGrace() time.Duration {
	return c.grace
}

func (c *Codec) keyFunc(*jwtv5.Token) (interface{}, error) {
	return c.secret, nil
}

// ValidFormat 廉价的结构检查，不做任何解码和签名计算
func ValidFormat(tokenStr string) bool {
	if strings.TrimSpace(tokenStr) == "" {
		return false
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return false
	}
	return parts[0] != "" && parts[1] != "" && parts[2] != ""
}
