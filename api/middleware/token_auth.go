/*
 * @module api/middleware/token_auth
 * @description API Token鉴权中间件，校验Bearer Token的有效性
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference dev_docs/requirements.md
 * @stateFlow Token提取 -> Token校验 -> 上下文注入 -> 下一个处理器
 * @rules 未配置 API_AUTH_TOKEN 时鉴权关闭；白名单路径始终放行
 * @dependencies net/http, github.com/go-chi/render
 * @refs api/routes.go
 */

package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/render"
)

// ContextKey 上下文键类型
type ContextKey string

// TokenKey Token在上下文中的键
const TokenKey ContextKey = "token"

// TokenAuthMiddleware 静态Token鉴权中间件
type TokenAuthMiddleware struct {
	token string
	// 白名单路径（不需要鉴权）
	whitelistPaths []string
}

// NewTokenAuthMiddleware 创建Token鉴权中间件实例
func NewTokenAuthMiddleware() *TokenAuthMiddleware {
	return &TokenAuthMiddleware{
		token: os.Getenv("API_AUTH_TOKEN"),
		whitelistPaths: []string{
			"/health",  // 健康检查
			"/ready",   // 就绪检查
			"/swagger", // Swagger文档
			"/metrics", // Prometheus指标
			"/sse",     // SSE连接由前端EventSource建立，无法携带请求头
		},
	}
}

// Enabled 鉴权是否开启
func (m *TokenAuthMiddleware) Enabled() bool {
	return m.token != ""
}

// AddWhitelistPath 添加白名单路径
func (m *TokenAuthMiddleware) AddWhitelistPath(path string) {
	m.whitelistPaths = append(m.whitelistPaths, path)
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *TokenAuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		// 支持前缀匹配
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 鉴权中间件处理函数
func (m *TokenAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() || m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, r, "缺少Authorization头")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.respondUnauthorized(w, r, "无效的Authorization格式，需要Bearer Token")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != m.token {
			m.respondUnauthorized(w, r, "Token无效")
			return
		}

		ctx := context.WithValue(r.Context(), TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respondUnauthorized 返回401未授权响应
func (m *TokenAuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status":  http.StatusUnauthorized,
		"message": message,
		"error":   "Unauthorized",
	})
}

// GetTokenFromContext 从上下文中获取Token
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}
