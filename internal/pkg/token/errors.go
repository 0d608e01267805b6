package token

import (
	"errors"
	"fmt"
)

// Kind 令牌校验失败的类别
type Kind int

const (
	KindNone Kind = iota
	// KindMalformed 结构、编码或声明无法解析
	KindMalformed
	// KindInvalidSignature 签名不匹配或签名算法不被接受
	KindInvalidSignature
	// KindExpired 已超过 exp
	KindExpired
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindExpired:
		return "expired"
	default:
		return "none"
	}
}

// Error 携带失败类别，调用方通过 KindOf 分支处理
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return "token: " + e.Kind.String()
	}
	return fmt.Sprintf("token: %s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// KindOf 取出错误类别，非本包错误返回 KindNone
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindNone
}
