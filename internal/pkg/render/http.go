package render

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/auth"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/debug"

	"github.com/go-kratos/kratos/v2/encoding"
	_ "github.com/go-kratos/kratos/v2/encoding/json"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	httptransport "github.com/go-kratos/kratos/v2/transport/http"
)

// Reply 统一 JSON 返回体
type Reply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Debug 仅在开发/测试环境显示
	Debug interface{}     `json:"debug,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenError 令牌被拒绝时的返回体，error 取值见 auth 包的 Reason
type TokenError struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Now 生成错误时间戳，测试中可替换
var Now = time.Now

// getCodec 获取编码器，默认回退到 JSON
func getCodec(r *http.Request) encoding.Codec {
	codec, ok := httptransport.CodecForRequest(r, "Accept")
	if !ok || codec == nil {
		codec = encoding.GetCodec("json")
	}
	return codec
}

// ResponseEncoder 成功响应的处理
func ResponseEncoder(w http.ResponseWriter, r *http.Request, data interface{}) error {
	res := &Reply{
		Code:    0,
		Message: "success",
	}

	// 非生产环境从 Context 捞取调试信息
	if debug.IsDebug() {
		if debugInfo, ok := debug.FromContext(r.Context()); ok && len(debugInfo) > 0 {
			res.Debug = debugInfo
		}
	}

	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		res.Data = b
	}

	codec := getCodec(r)
	body, err := codec.Marshal(res)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/"+codec.Name())
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(body)
	return err
}

// ErrorEncoder 错误响应的处理。令牌拒绝统一返回 401 与 TokenError，不携带任何内部信息
func ErrorEncoder(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.FromError(err)
	w.Header().Set("Content-Type", "application/json")

	if auth.IsRejection(se) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(&TokenError{
			Error:     strings.ToLower(se.Reason),
			Message:   se.Message,
			Timestamp: Now().UnixMilli(),
		})
		return
	}

	res := &Reply{
		Code:    int(se.Code),
		Message: se.Message,
	}
	if debug.IsDebug() {
		if debugInfo, ok := debug.FromContext(r.Context()); ok && len(debugInfo) > 0 {
			res.Debug = debugInfo
		}
	}

	switch {
	case se.Code >= 500:
		log.Errorf("request failed: path=%s err=%v", r.URL.Path, err)
		w.WriteHeader(http.StatusInternalServerError)
	case se.Code >= 400:
		w.WriteHeader(int(se.Code))
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	_ = json.NewEncoder(w).Encode(res)
}
