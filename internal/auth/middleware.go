package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/account-portal/internal/users"
)

// RequireLogin はログイン済みセッションを要求するミドルウェアを返します。
// 未ログインの場合はログイン画面へリダイレクトします。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.currentUser(c)
		if err != nil {
			m.unavailable(c)
			return
		}
		if user == nil {
			m.redirect(c, RouteLogin)
			c.Abort()
			return
		}

		m.touchSession(c)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireAPILogin は JSON API 用の RequireLogin です。
// 未ログインの場合は 401 を返し、操作時刻の更新はここで保存します。
func (m *Manager) RequireAPILogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.currentUser(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"code":    "SERVICE_UNAVAILABLE",
				"message": "Service temporarily unavailable.",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Login required.",
			})
			return
		}

		m.touchSession(c)
		if !m.saveSession(c) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to save session.",
			})
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// VerifyCSRF はフォームの csrf_token または X-CSRF-Token ヘッダーを検証するミドルウェアです。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, ok := session.Get(sessionKeyCSRF).(string)
		if !ok || expected == "" {
			m.logger.Warn("csrf token missing from session", "path", c.Request.URL.Path, "ip", c.ClientIP())
			c.String(http.StatusForbidden, "CSRF verification failed.")
			c.Abort()
			return
		}

		received := c.GetHeader(csrfHeader)
		if received == "" {
			received = c.PostForm(csrfFormField)
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			m.logger.Warn("csrf token mismatch", "path", c.Request.URL.Path, "ip", c.ClientIP())
			c.String(http.StatusForbidden, "CSRF verification failed.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// UserFromContext は RequireLogin が設定したユーザーを取り出します。
func UserFromContext(c *gin.Context) (*users.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*users.User)
	return user, ok && user != nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
