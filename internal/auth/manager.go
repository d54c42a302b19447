// Package auth はユーザー登録・ログイン・ログアウトとセッション管理を提供します。
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/account-portal/internal/users"
)

const (
	SessionCookieName    = "acct_session"
	sessionKeyUser       = "auth_user_id"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
	sessionKeyCSRF       = "csrf_token"

	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "csrf_token"
)

// 名前付きエンドポイント
const (
	RouteHome   = "/"
	RouteLogin  = "/login"
	RouteSignup = "/signup"
	RouteLogout = "/logout"
)

var (
	maxSessionLifetime = 12 * time.Hour
	idleTimeout        = 30 * time.Minute
)

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// フラッシュメッセージのレベル
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelError   = "error"
)

var flashLevels = []string{LevelSuccess, LevelInfo, LevelError}

// Message は次の描画で表示するフラッシュメッセージです。
type Message struct {
	Level string
	Text  string
}

// Manager は認証処理とセッション操作をまとめた構造体です。
type Manager struct {
	service  *Service
	repo     users.Repository
	activity ActivityTracker
	logger   *slog.Logger
}

// NewManager は認証マネージャーを作成します。
func NewManager(repo users.Repository, hasher *Hasher, activity ActivityTracker, logger *slog.Logger) *Manager {
	if activity == nil {
		activity = NopActivityTracker{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		service:  NewService(repo, hasher),
		repo:     repo,
		activity: activity,
		logger:   logger,
	}
}

// errSessionLookup はセッションのユーザーを一時的に読み込めないことを表します。
var errSessionLookup = errors.New("session user lookup failed")

// currentUser はセッションに紐づく有効なユーザーを返します。
// 期限切れや無効化されたユーザーのセッションは破棄します。
// リポジトリの一時的な障害ではセッションを残し、errSessionLookup を返します。
func (m *Manager) currentUser(c *gin.Context) (*users.User, error) {
	session := sessions.Default(c)
	rawID, ok := session.Get(sessionKeyUser).(string)
	if !ok || rawID == "" {
		return nil, nil
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		m.endSession(c, "")
		return nil, nil
	}

	now := time.Now()
	issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
	lastActive := readUnix(session.Get(sessionKeyLastActive))
	if issuedAt.IsZero() || now.Sub(issuedAt) > maxSessionLifetime ||
		lastActive.IsZero() || now.Sub(lastActive) > idleTimeout {
		m.endSession(c, "Your session has expired. Please log in again.")
		return nil, nil
	}

	user, err := m.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			m.endSession(c, "")
			return nil, nil
		}
		m.logger.Error("failed to load session user", "user_id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", errSessionLookup, err)
	}
	if !user.IsActive {
		m.endSession(c, "")
		return nil, nil
	}
	return user, nil
}

// unavailable はセッションの検証ができないときの応答です。
func (m *Manager) unavailable(c *gin.Context) {
	c.String(http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again later.")
	c.Abort()
}

// startSession は既存セッションを破棄してからユーザーを紐づけます。
// 呼び出し側で saveSession を行ってください。
func (m *Manager) startSession(c *gin.Context, user *users.User) error {
	token, err := generateToken()
	if err != nil {
		return err
	}

	session := sessions.Default(c)
	session.Clear()
	now := time.Now()
	session.Set(sessionKeyUser, user.ID.String())
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	session.Set(sessionKeyCSRF, token)
	return nil
}

// endSession はセッションを破棄し、必要であれば案内メッセージを残します。
func (m *Manager) endSession(c *gin.Context, notice string) {
	session := sessions.Default(c)
	session.Clear()
	if notice != "" {
		session.AddFlash(notice, LevelInfo)
	}
	m.saveSession(c)
}

func (m *Manager) touchSession(c *gin.Context) {
	sessions.Default(c).Set(sessionKeyLastActive, time.Now().Unix())
}

func (m *Manager) saveSession(c *gin.Context) bool {
	if err := sessions.Default(c).Save(); err != nil {
		m.logger.Error("failed to save session", "path", c.Request.URL.Path, "error", err)
		return false
	}
	return true
}

func (m *Manager) flash(c *gin.Context, level, text string) {
	sessions.Default(c).AddFlash(text, level)
}

func (m *Manager) drainFlashes(c *gin.Context) []Message {
	session := sessions.Default(c)
	var messages []Message
	for _, level := range flashLevels {
		for _, v := range session.Flashes(level) {
			if text, ok := v.(string); ok {
				messages = append(messages, Message{Level: level, Text: text})
			}
		}
	}
	return messages
}

// csrfToken はセッションの CSRF トークンを返し、なければ発行します。
func (m *Manager) csrfToken(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token, nil
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	session.Set(sessionKeyCSRF, token)
	return token, nil
}

// render はフラッシュメッセージと CSRF トークンを添えてテンプレートを描画します。
func (m *Manager) render(c *gin.Context, name string, data gin.H) {
	token, err := m.csrfToken(c)
	if err != nil {
		m.logger.Error("failed to generate csrf token", "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	data["Messages"] = m.drainFlashes(c)
	data["CSRFToken"] = token
	if !m.saveSession(c) {
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.Header(csrfHeader, token)
	c.HTML(http.StatusOK, name, data)
}

func (m *Manager) redirect(c *gin.Context, location string) {
	if !m.saveSession(c) {
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Redirect(http.StatusFound, location)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
