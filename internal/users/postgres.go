package users

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

const selectUser = `
	SELECT id, email, full_name, COALESCE(phone_number, '') AS phone_number,
	       password_hash, is_active, created_at, updated_at
	FROM users
`

// PostgresRepository は PostgreSQL にユーザーを保存します。
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository は PostgresRepository を作成します。
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Connect は PostgreSQL へ接続し、接続プールを設定します。
func Connect(ctx context.Context, databaseURL string, maxOpenConns int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Migrate は埋め込みマイグレーションを適用します。
// 適用済みの場合 (migrate.ErrNoChange) はエラーにしません。
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, selectUser+`WHERE email = $1`, email)
}

// GetByPhone は電話番号が一致するユーザーのうち最も古いものを返します。
// 電話番号は一意ではないため、重複時も結果が決定的になるようにしています。
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*User, error) {
	if phone == "" {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, selectUser+`WHERE phone_number = $1 ORDER BY created_at ASC LIMIT 1`, phone)
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, phone_number, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.Email, user.FullName, nullIfEmpty(user.PhoneNumber), user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert user %s: %w", user.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
