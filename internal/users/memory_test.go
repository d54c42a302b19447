package users

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)

func TestMemoryRepositoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	user := &User{Email: "jane@x.com", FullName: "Jane Doe", PhoneNumber: "254712345678", PasswordHash: "hash", IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byEmail, err := repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byPhone, err := repo.GetByPhone(ctx, "254712345678")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byPhone.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", byID.FullName)
}

func TestMemoryRepositoryEmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &User{Email: "jane@x.com", IsActive: true}))

	_, err := repo.GetByEmail(ctx, "Jane@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &User{Email: "jane@x.com"}))

	err := repo.Create(ctx, &User{Email: "jane@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMemoryRepositoryConcurrentSignupsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Create(ctx, &User{Email: "race@x.com"}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryRepositoryEmptyPhoneNeverMatches(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &User{Email: "nophone@x.com"}))

	_, err := repo.GetByPhone(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositorySharedPhoneReturnsOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	first := &User{Email: "a@x.com", PhoneNumber: "0700000000"}
	second := &User{Email: "b@x.com", PhoneNumber: "0700000000"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.GetByPhone(ctx, "0700000000")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user := &User{Email: "jane@x.com", IsActive: true}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	got.IsActive = false

	again, err := repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.True(t, again.IsActive)

	require.NoError(t, repo.SetActive(user.ID, false))
	again, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
}

func TestUserFirstName(t *testing.T) {
	assert.Equal(t, "Jane", (&User{FullName: "Jane Doe"}).FirstName())
	assert.Equal(t, "Cher", (&User{FullName: " Cher "}).FirstName())
}
