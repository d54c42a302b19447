package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityKind はアカウント操作の種類です。
type ActivityKind string

const (
	ActivitySignup ActivityKind = "signup"
	ActivityLogin  ActivityKind = "login"
	ActivityLogout ActivityKind = "logout"
)

// Activity はアカウント操作の記録です。
type Activity struct {
	Kind ActivityKind
	At   time.Time
}

// ActivityTracker はアカウント操作を記録・参照します。
// 記録の失敗はリクエストの結果に影響させません。
type ActivityTracker interface {
	Track(ctx context.Context, userID uuid.UUID, kind ActivityKind) error
	Recent(ctx context.Context, userID uuid.UUID) ([]Activity, error)
}

// NopActivityTracker は何も記録しない ActivityTracker です。
type NopActivityTracker struct{}

func (NopActivityTracker) Track(context.Context, uuid.UUID, ActivityKind) error { return nil }

func (NopActivityTracker) Recent(context.Context, uuid.UUID) ([]Activity, error) { return nil, nil }
