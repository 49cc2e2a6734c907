package middleware

import "net/http"

// NewSecurityHeadersMiddleware は監視用エンドポイント向けのレスポンスヘッダーを付与するミドルウェアを返す。
// レスポンスは常に最新の状態を表すため、キャッシュを禁止する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
