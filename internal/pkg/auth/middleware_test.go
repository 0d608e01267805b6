package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerCarrier http.Header

func (hc headerCarrier) Get(key string) string      { return http.Header(hc).Get(key) }
func (hc headerCarrier) Set(key, value string)      { http.Header(hc).Set(key, value) }
func (hc headerCarrier) Add(key, value string)      { http.Header(hc).Add(key, value) }
func (hc headerCarrier) Values(key string) []string { return http.Header(hc).Values(key) }
func (hc headerCarrier) Keys() []string {
	keys := make([]string, 0, len(hc))
	for k := range hc {
		keys = append(keys, k)
	}
	return keys
}

type testTransport struct {
	operation string
	header    headerCarrier
}

func (tr *testTransport) Kind() transport.Kind            { return transport.KindHTTP }
func (tr *testTransport) Endpoint() string                { return "127.0.0.1:8000" }
func (tr *testTransport) Operation() string               { return tr.operation }
func (tr *testTransport) RequestHeader() transport.Header { return tr.header }
func (tr *testTransport) ReplyHeader() transport.Header   { return headerCarrier{} }

func serverContext(operation, authorization string) context.Context {
	h := headerCarrier{}
	if authorization != "" {
		h.Set("Authorization", authorization)
	}
	return transport.NewServerContext(context.Background(), &testTransport{operation: operation, header: h})
}

func TestMatch(t *testing.T) {
	paths := map[string]struct{}{
		"/blog.auth.v1.Auth/Login": {},
		"/blog.admin.v1.Admin/":    {},
	}
	assert.True(t, Match("/blog.auth.v1.Auth/Login", paths))
	assert.False(t, Match("/blog.auth.v1.Auth/LoginAll", paths))
	assert.True(t, Match("/blog.admin.v1.Admin/RevokeToken", paths))
	assert.False(t, Match("/blog.auth.v1.Auth/Me", paths))
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t)
	config := NewPathAccessConfig(
		[]string{"/blog.auth.v1.Auth/Login"},
		[]string{"/blog.admin.v1.Admin/"},
		"ADMIN",
	)
	m := Middleware(f.authn, config)

	var seen *Identity
	handler := m(func(ctx context.Context, req interface{}) (interface{}, error) {
		seen, _ = FromContext(ctx)
		return "ok", nil
	})

	alice, _ := f.issue(t, "alice", time.Hour)
	admin, _ := f.issue(t, "admin", time.Hour)

	tests := []struct {
		name      string
		operation string
		header    string
		subject   string
		target    *kerrors.Error
	}{
		{"public anonymous", "/blog.auth.v1.Auth/Login", "", "", nil},
		{"public with identity", "/blog.auth.v1.Auth/Login", "Bearer " + alice, "alice", nil},
		{"public with bad token", "/blog.auth.v1.Auth/Login", "Bearer a.b.c", "", ErrTokenMalformed},
		{"protected anonymous", "/blog.auth.v1.Auth/Me", "", "", ErrAuthenticationRequired},
		{"protected wrong scheme", "/blog.auth.v1.Auth/Me", "Basic xyz", "", ErrAuthenticationRequired},
		{"protected ok", "/blog.auth.v1.Auth/Me", "Bearer " + alice, "alice", nil},
		{"admin forbidden", "/blog.admin.v1.Admin/RevokeToken", "Bearer " + alice, "", ErrPermissionDenied},
		{"admin ok", "/blog.admin.v1.Admin/RevokeToken", "Bearer " + admin, "admin", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			reply, err := handler(serverContext(tt.operation, tt.header), nil)
			if tt.target != nil {
				require.Error(t, err)
				assert.True(t, kerrors.Is(err, tt.target), "got %v", err)
				assert.Nil(t, reply)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", reply)
			if tt.subject == "" {
				assert.Nil(t, seen)
			} else {
				require.NotNil(t, seen)
				assert.Equal(t, tt.subject, seen.Subject)
			}
		})
	}
}

func TestServer_WithoutTransport(t *testing.T) {
	f := newFixture(t)
	reply, err := Server(f.authn)(func(ctx context.Context, req interface{}) (interface{}, error) {
		_, ok := FromContext(ctx)
		assert.False(t, ok)
		return "ok", nil
	})(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}
