// Package users はユーザーレコードと永続化層を提供します。
package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User は登録済みユーザーを表します。
// PasswordHash はハッシュ済みの値のみを保持し、JSON には出力しません。
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"fullName" db:"full_name"`
	PhoneNumber  string    `json:"phoneNumber,omitempty" db:"phone_number"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// FirstName は氏名の先頭の語を返します。
func (u *User) FirstName() string {
	name := strings.TrimSpace(u.FullName)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i]
	}
	return name
}

func (u *User) String() string {
	return u.Email
}
