package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap 配置根节点
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	App    *App    `json:"app"`
}

type Server struct {
	Http *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Network string    `json:"network"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
}

type Data_Database struct {
	Driver          string    `json:"driver"`
	Source          string    `json:"source"`
	MaxIdleConns    int32     `json:"max_idle_conns"`
	MaxOpenConns    int32     `json:"max_open_conns"`
	ConnMaxLifetime *Duration `json:"conn_max_lifetime"`
}

type Data_Redis struct {
	Addr         string    `json:"addr"`
	Password     string    `json:"password"`
	Database     int32     `json:"database"`
	ReadTimeout  *Duration `json:"read_timeout"`
	WriteTimeout *Duration `json:"write_timeout"`
	PoolSize     int32     `json:"pool_size"`
}

type App struct {
	Env        string          `json:"env"`
	WorkerId   int64           `json:"worker_id"`
	Log        *App_Log        `json:"log"`
	Auth       *App_Auth       `json:"auth"`
	Revocation *App_Revocation `json:"revocation"`
}

type App_Log struct {
	Level string `json:"level"`
}

type App_Auth struct {
	Jwt         *App_Auth_Jwt `json:"jwt"`
	PublicPaths []string      `json:"public_paths"`
	AdminPaths  []string      `json:"admin_paths"`
	AdminRole   string        `json:"admin_role"`
}

type App_Auth_Jwt struct {
	Secret string `json:"secret"`
	// Ttl 令牌有效期
	Ttl *Duration `json:"ttl"`
	// RefreshGrace 过期后仍允许刷新的窗口
	RefreshGrace *Duration `json:"refresh_grace"`
}

type App_Revocation struct {
	// Store 持久化后端：redis | database
	Store string `json:"store"`
	// FailurePolicy 后端不可用时的策略：open | closed，必须显式配置
	FailurePolicy    string    `json:"failure_policy"`
	LookupTimeout    *Duration `json:"lookup_timeout"`
	NegativeCacheTtl *Duration `json:"negative_cache_ttl"`
	CleanupSpec      string    `json:"cleanup_spec"`
	ReportSpec       string    `json:"report_spec"`
	RateLimitPerHour int32     `json:"rate_limit_per_hour"`
}

// Duration 支持 "1h"、"300ms" 形式的时长配置，也兼容纳秒整数
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// AsDuration 与 durationpb 保持一致的取值方式，nil 返回 0
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}
