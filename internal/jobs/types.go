package jobs

import "time"

// TaskPayload はアカウント操作イベントのペイロードです。
type TaskPayload struct {
	UserID     string    `json:"userId"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Record は Redis に保存するアカウント操作の記録です。
type Record struct {
	UserID     string    `json:"userId"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurredAt"`
	RecordedAt time.Time `json:"recordedAt"`
}
