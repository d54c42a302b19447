package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/account-portal/internal/logger"
)

type fakeStore struct {
	records []Record
	err     error
}

func (s *fakeStore) Append(ctx context.Context, record *Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append([]Record{*record}, s.records...)
	return nil
}

func (s *fakeStore) Recent(ctx context.Context, userID string) ([]Record, error) {
	return s.records, nil
}

func newTestManager(store activityStore) *Manager {
	return &Manager{store: store, logger: logger.Discard()}
}

func TestNewActivityTaskValidatesPayload(t *testing.T) {
	_, err := newActivityTask(nil)
	assert.Error(t, err)

	_, err = newActivityTask(&TaskPayload{Kind: "login"})
	assert.Error(t, err)

	_, err = newActivityTask(&TaskPayload{UserID: "u1"})
	assert.Error(t, err)

	payload := &TaskPayload{UserID: "u1", Kind: "login"}
	task, err := newActivityTask(payload)
	require.NoError(t, err)
	assert.Equal(t, taskTypeActivity, task.Type())
	assert.False(t, payload.OccurredAt.IsZero())
}

func TestHandleActivityTaskStoresRecord(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)

	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	task, err := newActivityTask(&TaskPayload{UserID: "u1", Kind: "signup", OccurredAt: at})
	require.NoError(t, err)

	require.NoError(t, m.handleActivityTask(context.Background(), task))
	require.Len(t, store.records, 1)
	assert.Equal(t, "signup", store.records[0].Kind)
	assert.True(t, at.Equal(store.records[0].OccurredAt))

	records, err := m.Recent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestHandleActivityTaskSkipsRetryOnBadPayload(t *testing.T) {
	m := newTestManager(&fakeStore{})

	err := m.handleActivityTask(context.Background(), asynq.NewTask(taskTypeActivity, []byte("not-json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	body, _ := json.Marshal(TaskPayload{Kind: "login"})
	err = m.handleActivityTask(context.Background(), asynq.NewTask(taskTypeActivity, body))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleActivityTaskReturnsStoreError(t *testing.T) {
	storeErr := errors.New("redis down")
	m := newTestManager(&fakeStore{err: storeErr})

	task, err := newActivityTask(&TaskPayload{UserID: "u1", Kind: "login"})
	require.NoError(t, err)
	assert.ErrorIs(t, m.handleActivityTask(context.Background(), task), storeErr)
}

// TEST_REDIS_URL が設定されている場合のみ実行する結合テストです。
func TestStoreAppendAndRecent(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}
	opt, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	store := NewStore(rdb, 2, time.Minute)
	require.NoError(t, store.Ping(ctx))

	userID := uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, activityKey(userID)) })

	for _, kind := range []string{"signup", "logout", "login"} {
		require.NoError(t, store.Append(ctx, &Record{UserID: userID, Kind: kind, OccurredAt: time.Now().UTC()}))
	}

	records, err := store.Recent(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "login", records[0].Kind)
	assert.Equal(t, "logout", records[1].Kind)

	ttl, err := rdb.TTL(ctx, activityKey(userID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
