package debug

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

// Filter 为每个请求准备调试信息容器，并分配请求 ID。
// 容器随 Context 传递，ResponseEncoder 在非生产环境把它写回响应。
func Filter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		m := Info{"request_id": id}
		if IsDebug() {
			m["received_at"] = time.Now().UnixMilli()
		}
		ctx := context.WithValue(r.Context(), debugKey{}, m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
