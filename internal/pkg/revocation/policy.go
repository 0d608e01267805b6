package revocation

import (
	"fmt"
	"strings"
)

// Policy 持久化后端不可用时 IsRevoked 的处理策略
type Policy int

const (
	policyUnset Policy = iota
	// FailClosed 视为已撤销，请求被拒绝
	FailClosed
	// FailOpen 视为未撤销，请求继续
	FailOpen
)

func (p Policy) String() string {
	switch p {
	case FailClosed:
		return "closed"
	case FailOpen:
		return "open"
	default:
		return "unset"
	}
}

// ParsePolicy 只接受 open / closed，空值同样报错，不做隐式默认
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closed", "fail-closed", "fail_closed":
		return FailClosed, nil
	case "open", "fail-open", "fail_open":
		return FailOpen, nil
	}
	return policyUnset, fmt.Errorf("revocation failure policy must be \"open\" or \"closed\", got %q", s)
}
