package token

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// 注册声明，不允许被应用自定义声明覆盖
var reservedClaims = map[string]struct{}{
	"sub": {}, "jti": {}, "iat": {}, "exp": {}, "nbf": {}, "iss": {}, "aud": {},
}

// Claims 令牌中携带的声明
type Claims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extra 应用自定义声明
	Extra map[string]interface{}
}

// String 读取字符串类型的自定义声明
func (c *Claims) String(key string) string {
	v, _ := c.Extra[key].(string)
	return v
}

// Strings 读取字符串数组类型的自定义声明（JSON 解码后为 []interface{}）
func (c *Claims) Strings(key string) []string {
	switch v := c.Extra[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (c *Claims) toMap() jwtv5.MapClaims {
	m := make(jwtv5.MapClaims, len(c.Extra)+4)
	for k, v := range c.Extra {
		if _, ok := reservedClaims[k]; ok {
			continue
		}
		m[k] = v
	}
	m["sub"] = c.Subject
	m["jti"] = c.ID
	m["iat"] = jwtv5.NewNumericDate(c.IssuedAt)
	m["exp"] = jwtv5.NewNumericDate(c.ExpiresAt)
	return m
}

func claimsFromMap(m jwtv5.MapClaims) (*Claims, error) {
	c := &Claims{Extra: make(map[string]interface{})}
	var err error
	if c.Subject, err = m.GetSubject(); err != nil {
		return nil, err
	}
	if c.ID, err = stringClaim(m, "jti"); err != nil {
		return nil, err
	}
	iat, err := m.GetIssuedAt()
	if err != nil {
		return nil, err
	}
	if iat != nil {
		c.IssuedAt = iat.Time
	}
	exp, err := m.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	for k, v := range m {
		if _, ok := reservedClaims[k]; ok {
			continue
		}
		c.Extra[k] = v
	}
	return c, nil
}

func stringClaim(m jwtv5.MapClaims, key string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", jwtv5.ErrInvalidType
	}
	return s, nil
}
