package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher は bcrypt によるパスワードのハッシュ化と検証を行います。
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher は指定コストの Hasher を作成します。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash はソルト付きのハッシュを返します。
// 72バイトを超えるパスワードは bcrypt.ErrPasswordTooLong になります。
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify はパスワードとハッシュを定数時間で比較します。
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy はユーザーが見つからなかった場合にも同程度の時間をかけるための比較です。
func (h *Hasher) VerifyDummy(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
