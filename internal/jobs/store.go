package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activityKeyPrefix = "activity:"
)

// Store はユーザーごとのアカウント操作を Redis のリストに保存します。
// 新しいものが先頭で、limit 件を超えた分は切り詰めます。
type Store struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, limit int, ttl time.Duration) *Store {
	if limit <= 0 {
		limit = 10
	}
	return &Store{
		rdb:   rdb,
		limit: limit,
		ttl:   ttl,
	}
}

// Append は記録を先頭に追加します。
func (s *Store) Append(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.UserID == "" {
		return fmt.Errorf("record.UserID is required")
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	key := activityKey(record.UserID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, int64(s.limit-1))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

// Recent は新しい順に最大 limit 件を返します。
func (s *Store) Recent(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}
	values, err := s.rdb.LRange(ctx, activityKey(userID), 0, int64(s.limit-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	records := make([]Record, 0, len(values))
	for _, v := range values {
		var record Record
		if err := json.Unmarshal([]byte(v), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Ping は Redis への疎通を確認します。
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func activityKey(userID string) string {
	return activityKeyPrefix + userID
}
