// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/account-portal/internal/auth"
	"github.com/yourusername/account-portal/internal/config"
	"github.com/yourusername/account-portal/internal/logger"
	"github.com/yourusername/account-portal/internal/templates"
	"github.com/yourusername/account-portal/internal/users"
)

// devSessionSecret はローカル開発で SESSION_SECRET が未設定の場合に使う鍵です。
const devSessionSecret = "account-portal-development-only-secret"

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := setupRepository(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to set up user repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	tracker, shutdownJobs, err := setupActivity(cfg, log)
	if err != nil {
		log.Error("Failed to set up activity tracking", "error", err)
		os.Exit(1)
	}
	defer shutdownJobs()

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.SetHTMLTemplate(templates.MustParse())

	// セッションストアの設定
	secret := cfg.SessionSecret
	if secret == "" {
		log.Warn("SESSION_SECRET is not set; using development secret")
		secret = devSessionSecret
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		// ログイン後のリダイレクトでクッキーを送れるように Lax にする
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"X-CSRF-Token", // CSRF保護用ヘッダー
	}
	corsConfig.ExposeHeaders = []string{"X-CSRF-Token"}
	router.Use(cors.New(corsConfig))

	hasher := auth.NewHasher(cfg.BcryptCost)
	authManager := auth.NewManager(repo, hasher, tracker, log)

	// ルーティングの設定
	setupRoutes(router, authManager, repo, tracker)

	// サーバーの起動
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Starting web server", "addr", srv.Addr, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
	log.Info("Server stopped")
}

// setupRepository は DATABASE_URL に応じて PostgreSQL かインメモリのリポジトリを返します。
func setupRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (users.Repository, func(), error) {
	if cfg.UseMemoryStore() {
		log.Warn("DATABASE_URL is not set; users are kept in memory")
		return users.NewMemoryRepository(), func() {}, nil
	}

	if err := users.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}
	db, err := users.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Connected to PostgreSQL")
	return users.NewPostgresRepository(db), func() { _ = db.Close() }, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーを返します。
func handleHealth(repo users.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := repo.Ping(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": "account-portal",
			"version": "0.1.0",
		})
	}
}

// setupRoutes は画面と API の配線を行います。
func setupRoutes(router *gin.Engine, authManager *auth.Manager, repo users.Repository, tracker auth.ActivityTracker) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth(repo))

	authManager.RegisterRoutes(router)

	api := router.Group("/api")
	api.Use(authManager.RequireAPILogin())
	{
		api.GET("/activity", activityHandler(tracker))
	}
}
