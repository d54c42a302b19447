package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	templateSignup = "signup.html"
	templateLogin  = "login.html"
	templateHome   = "home.html"

	msgDatabaseError = "A database error occurred during sign up."
	msgLoginSuccess  = "Login successful!"
	msgLoginFailed   = "Invalid information. Please try again."
	msgLoggedOut     = "You have been successfully logged out."
)

// RegisterRoutes は画面のルーティングを登録します。
// 状態を変更する POST には CSRF 検証を掛けます。ログアウトは POST のみです。
func (m *Manager) RegisterRoutes(r gin.IRouter) {
	csrf := m.VerifyCSRF()

	r.GET(RouteHome, m.RequireLogin(), m.Home)
	r.GET(RouteSignup, m.Signup)
	r.POST(RouteSignup, csrf, m.Signup)
	r.GET(RouteLogin, m.Login)
	r.POST(RouteLogin, csrf, m.Login)
	r.POST(RouteLogout, csrf, m.Logout)
}

// Signup は /signup のハンドラーです。
func (m *Manager) Signup(c *gin.Context) {
	user, err := m.currentUser(c)
	if err != nil {
		m.unavailable(c)
		return
	}
	if user != nil {
		m.redirect(c, RouteHome)
		return
	}

	if c.Request.Method != http.MethodPost {
		m.render(c, templateSignup, gin.H{
			"Form":    SignupForm{},
			"Errors":  FormErrors{},
			"Success": true,
		})
		return
	}

	form := BindSignupForm(c)
	result, err := m.service.Signup(c.Request.Context(), form)
	if err != nil {
		m.logger.Error("user creation failed", "email", form.Email, "error", err)
		m.flash(c, LevelError, msgDatabaseError)
		m.render(c, templateSignup, gin.H{
			"Form":    form.Redisplay(),
			"Errors":  result.Errors,
			"Success": false,
		})
		return
	}
	if !result.OK() {
		m.render(c, templateSignup, gin.H{
			"Form":    form.Redisplay(),
			"Errors":  result.Errors,
			"Success": true,
		})
		return
	}

	user = result.User
	if err := m.startSession(c, user); err != nil {
		m.logger.Error("failed to start session", "user_id", user.ID, "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	m.logger.Info("user signed up", "user_id", user.ID)
	m.track(c.Request.Context(), user.ID, ActivitySignup)
	m.flash(c, LevelSuccess, fmt.Sprintf("Welcome, %s! Your account is created.", user.FirstName()))
	m.redirect(c, RouteHome)
}

// Login は /login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	user, err := m.currentUser(c)
	if err != nil {
		m.unavailable(c)
		return
	}
	if user != nil {
		m.redirect(c, RouteHome)
		return
	}

	if c.Request.Method != http.MethodPost {
		m.render(c, templateLogin, gin.H{
			"Form":   LoginForm{},
			"Errors": FormErrors{},
		})
		return
	}

	form := BindLoginForm(c)
	result, err := m.service.Login(c.Request.Context(), form)
	if err != nil {
		m.logger.Error("login lookup failed", "error", err)
	}
	if err != nil || !result.OK() {
		m.flash(c, LevelError, msgLoginFailed)
		// 入力値は再表示せず、空のフォームに検証結果だけを添える
		m.render(c, templateLogin, gin.H{
			"Form":   LoginForm{},
			"Errors": result.Errors,
		})
		return
	}

	user = result.User
	if err := m.startSession(c, user); err != nil {
		m.logger.Error("failed to start session", "user_id", user.ID, "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	m.logger.Info("user logged in", "user_id", user.ID, "matched_by", result.Match.String())
	m.track(c.Request.Context(), user.ID, ActivityLogin)
	m.flash(c, LevelSuccess, msgLoginSuccess)
	m.redirect(c, RouteHome)
}

// Logout は /logout のハンドラーです。未ログインでもエラーにせずログイン画面へ戻します。
func (m *Manager) Logout(c *gin.Context) {
	user, err := m.currentUser(c)
	switch {
	case user != nil:
		m.endSession(c, msgLoggedOut)
		m.logger.Info("user logged out", "user_id", user.ID)
		m.track(c.Request.Context(), user.ID, ActivityLogout)
	case err != nil:
		// ユーザーを読めなくてもセッションは破棄する
		m.endSession(c, msgLoggedOut)
	}
	m.redirect(c, RouteLogin)
}

// Home はログイン後のトップページです。RequireLogin の後ろで使用します。
func (m *Manager) Home(c *gin.Context) {
	user, ok := UserFromContext(c)
	if !ok {
		m.redirect(c, RouteLogin)
		return
	}

	activity, err := m.activity.Recent(c.Request.Context(), user.ID)
	if err != nil {
		m.logger.Warn("failed to load recent activity", "user_id", user.ID, "error", err)
	}

	m.render(c, templateHome, gin.H{
		"User":     user,
		"Activity": activity,
	})
}

func (m *Manager) track(ctx context.Context, userID uuid.UUID, kind ActivityKind) {
	if err := m.activity.Track(ctx, userID, kind); err != nil {
		m.logger.Warn("failed to track activity", "user_id", userID, "kind", kind, "error", err)
	}
}
