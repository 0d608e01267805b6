package v1

type RevokeTokenRequest struct {
	Jti    string `json:"jti"`
	Reason string `json:"reason"`
}

type Revocation struct {
	Jti       string `json:"jti"`
	Subject   string `json:"subject,omitempty"`
	Reason    string `json:"reason"`
	RevokedAt int64  `json:"revoked_at"` // 毫秒时间戳
	ExpiresAt int64  `json:"expires_at"`
}

type RevokeUserRequest struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

type RevokeUserReply struct {
	Revoked int32 `json:"revoked"`
}

type GetRevocationRequest struct {
	Jti string `json:"jti"`
}

type RevocationStatsRequest struct{}

type RevocationStatsReply struct {
	Total    int64            `json:"total"`
	ByReason map[string]int64 `json:"by_reason"`
}
