package v1

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenReply struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"` // 毫秒时间戳
}

type RefreshRequest struct {
	Token string `json:"token"`
}

type LogoutRequest struct{}

type LogoutReply struct {
	Message string `json:"message"`
}

type LogoutAllRequest struct{}

type LogoutAllReply struct {
	Revoked int32 `json:"revoked"`
}

type MeRequest struct{}

type MeReply struct {
	Subject   string   `json:"subject"`
	UserId    int64    `json:"user_id"`
	Roles     []string `json:"roles"`
	TokenId   string   `json:"token_id"`
	ExpiresAt int64    `json:"expires_at"`
}
