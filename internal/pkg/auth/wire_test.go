package auth

import (
	"testing"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenCodec_MissingConfig(t *testing.T) {
	cases := []struct {
		name string
		c    *conf.App
	}{
		{"nil app", nil},
		{"no auth", &conf.App{}},
		{"no jwt", &conf.App{Auth: &conf.App_Auth{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				codec, err := NewTokenCodec(tc.c)
				require.Error(t, err)
				assert.Nil(t, codec)
				assert.Contains(t, err.Error(), "app.auth.jwt")
			})
		})
	}
}

func TestNewPathAccessConfigFromConf(t *testing.T) {
	for _, c := range []*conf.App{nil, {}} {
		assert.NotPanics(t, func() {
			pa, err := NewPathAccessConfigFromConf(c)
			require.Error(t, err)
			assert.Nil(t, pa)
		})
	}

	pa, err := NewPathAccessConfigFromConf(&conf.App{Auth: &conf.App_Auth{
		PublicPaths: []string{"/api/v1/auth/login"},
		AdminPaths:  []string{"/api/v1/admin/"},
		AdminRole:   "admin",
	}})
	require.NoError(t, err)
	require.NotNil(t, pa)
}
