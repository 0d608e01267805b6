package render

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorEncoder_TokenRejections(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_123)
	Now = func() time.Time { return fixed }
	t.Cleanup(func() { Now = time.Now })

	tests := []struct {
		err  error
		want string
	}{
		{auth.ErrInvalidToken, "invalid_token"},
		{auth.ErrTokenExpired.WithCause(errors.New(500, "X", "internal detail")), "token_expired"},
		{auth.ErrTokenMalformed, "token_malformed"},
		{auth.ErrInvalidSignature, "invalid_signature"},
		{auth.ErrTokenRevoked, "token_revoked"},
		{auth.ErrTokenProcessing, "token_processing_error"},
		{auth.ErrAuthenticationRequired, "invalid_token"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorEncoder(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), tt.err)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Len(t, body, 3)
			assert.Equal(t, tt.want, body["error"])
			assert.Equal(t, errors.FromError(tt.err).Message, body["message"])
			assert.Equal(t, float64(fixed.UnixMilli()), body["timestamp"])
			assert.NotContains(t, rec.Body.String(), "internal detail")
		})
	}
}

func TestErrorEncoder_Reply(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorEncoder(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil),
		errors.New(http.StatusTooManyRequests, "TOO_MANY_REVOCATIONS", "too many"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var reply Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, http.StatusTooManyRequests, reply.Code)
	assert.Equal(t, "too many", reply.Message)

	rec = httptest.NewRecorder()
	ErrorEncoder(rec, httptest.NewRequest(http.MethodGet, "/", nil), auth.ErrPermissionDenied)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResponseEncoder(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	require.NoError(t, ResponseEncoder(rec, req, map[string]string{"subject": "alice"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	var reply Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, 0, reply.Code)
	assert.Equal(t, "success", reply.Message)
	assert.JSONEq(t, `{"subject":"alice"}`, string(reply.Data))
}
