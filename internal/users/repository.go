package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound は該当するユーザーが存在しないことを表します。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail はメールアドレスの一意制約違反を表します。
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository はユーザーの永続化操作を定義します。
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByPhone は電話番号の完全一致で検索します。空文字は常に ErrNotFound です。
	GetByPhone(ctx context.Context, phone string) (*User, error)
	// Create は ID とタイムスタンプを割り当てて保存します。
	Create(ctx context.Context, user *User) error
	Ping(ctx context.Context) error
}
