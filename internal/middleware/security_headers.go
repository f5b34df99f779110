package middleware

import (
	"net/http"
	"strings"
)

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// 応募者がアップロードしたPDF・画像の配信では、ファイルに
			// 埋め込まれたスクリプトをブラウザに実行させない
			if strings.HasPrefix(r.URL.Path, "/uploads/") {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
			}
			next.ServeHTTP(w, r)
		})
	}
}
