package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/account-portal/internal/auth"
	"github.com/yourusername/account-portal/internal/config"
	"github.com/yourusername/account-portal/internal/jobs"
)

// activitySource は jobs.Manager のうち記録の投入と参照に使う操作です。
type activitySource interface {
	Enqueue(ctx context.Context, payload *jobs.TaskPayload) (string, error)
	Recent(ctx context.Context, userID string) ([]jobs.Record, error)
}

// activityTracker は auth.ActivityTracker を jobs.Manager で実装します。
type activityTracker struct {
	source activitySource
}

func (t *activityTracker) Track(ctx context.Context, userID uuid.UUID, kind auth.ActivityKind) error {
	_, err := t.source.Enqueue(ctx, &jobs.TaskPayload{
		UserID:     userID.String(),
		Kind:       string(kind),
		OccurredAt: time.Now().UTC(),
	})
	return err
}

func (t *activityTracker) Recent(ctx context.Context, userID uuid.UUID) ([]auth.Activity, error) {
	records, err := t.source.Recent(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	activity := make([]auth.Activity, 0, len(records))
	for _, r := range records {
		activity = append(activity, auth.Activity{
			Kind: auth.ActivityKind(r.Kind),
			At:   r.OccurredAt,
		})
	}
	return activity, nil
}

// setupActivity は QUEUE_REDIS_URL が設定されていればワーカーを起動します。
// 未設定の場合は何も記録しない tracker を返します。
func setupActivity(cfg *config.Config, log *slog.Logger) (auth.ActivityTracker, func(), error) {
	if cfg.QueueRedisURL == "" {
		log.Info("QUEUE_REDIS_URL is not set; account activity is not recorded")
		return auth.NopActivityTracker{}, func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, nil, err
	}

	redisClient := redis.NewClient(opt)
	ttlHours := cfg.ActivityTTLHours
	if ttlHours <= 0 {
		ttlHours = 24 * 30
	}
	store := jobs.NewStore(redisClient, cfg.ActivityLimit, time.Duration(ttlHours)*time.Hour)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		// Redis が後から起動するケースもあるので起動は止めない
		log.Warn("activity redis is not reachable yet", "error", err)
	}
	manager, err := jobs.NewManager(cfg.QueueRedisURL, store, log)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}
	manager.StartWorkers()

	shutdown := func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			log.Warn("failed to shut down activity workers", "error", err)
		}
		_ = redisClient.Close()
	}
	return &activityTracker{source: manager}, shutdown, nil
}

// activityHandler はログイン中ユーザーの最近の操作を JSON で返します。
func activityHandler(tracker auth.ActivityTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Login required.",
			})
			return
		}

		activity, err := tracker.Recent(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to load recent activity.",
			})
			return
		}

		items := make([]gin.H, 0, len(activity))
		for _, a := range activity {
			items = append(items, gin.H{
				"kind": a.Kind,
				"at":   a.At,
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"userId":   user.ID,
			"activity": items,
		})
	}
}
