// Package jobs はアカウント操作イベントの非同期記録を提供します。
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	taskTypeActivity = "account:activity"
	queueActivity    = "activity"
)

// activityStore は Manager が記録の保存と参照に使う操作です。
type activityStore interface {
	Append(ctx context.Context, record *Record) error
	Recent(ctx context.Context, userID string) ([]Record, error)
}

// Manager はイベントの投入とワーカーを管理します。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  activityStore
	logger *slog.Logger
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, store *Store, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueActivity: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		logger: logger,
	}
	mux.HandleFunc(taskTypeActivity, manager.handleActivityTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error("asynq server stopped with error", "error", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	return m.client.Close()
}

// Enqueue はイベントをキューに投入します。
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) (string, error) {
	task, err := newActivityTask(payload)
	if err != nil {
		return "", err
	}
	info, err := m.client.EnqueueContext(ctx, task, asynq.Queue(queueActivity), asynq.MaxRetry(3))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Recent は保存済みの記録を新しい順に返します。
func (m *Manager) Recent(ctx context.Context, userID string) ([]Record, error) {
	return m.store.Recent(ctx, userID)
}

func newActivityTask(payload *TaskPayload) (*asynq.Task, error) {
	if payload == nil {
		return nil, fmt.Errorf("payload is nil")
	}
	if payload.UserID == "" {
		return nil, fmt.Errorf("payload.UserID is required")
	}
	if payload.Kind == "" {
		return nil, fmt.Errorf("payload.Kind is required")
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskTypeActivity, body), nil
}

func (m *Manager) handleActivityTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID == "" || payload.Kind == "" {
		return fmt.Errorf("incomplete payload: %w", asynq.SkipRetry)
	}

	if err := m.store.Append(ctx, &Record{
		UserID:     payload.UserID,
		Kind:       payload.Kind,
		OccurredAt: payload.OccurredAt,
	}); err != nil {
		m.logger.Warn("failed to record activity", "user_id", payload.UserID, "kind", payload.Kind, "error", err)
		return err
	}
	return nil
}
