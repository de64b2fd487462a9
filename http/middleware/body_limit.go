package middleware

import (
	"net/http"

	"github.com/leeforge/imagekit/http/responder"
)

// MaxBodySize 限制请求体大小，limit <= 0 时不限制
// 声明的 Content-Length 超限时直接返回 413，否则由读取方拿到 *http.MaxBytesError
func MaxBodySize(limit int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				responder.PayloadTooLarge(w, r, limit)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
