package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/account-portal/internal/users"
)

// ErrPersistence はユーザーの検索・保存で発生した想定外のエラーを表します。
// 原因は %w で連結されますが、利用者には詳細を表示しません。
var ErrPersistence = errors.New("database error")

// Service は登録とログインの入力検証を行います。
// リクエスト間で共有する可変状態は持ちません。
type Service struct {
	repo   users.Repository
	hasher *Hasher
}

// NewService は Service を作成します。
func NewService(repo users.Repository, hasher *Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// SignupResult は登録処理の結果です。
type SignupResult struct {
	User   *users.User
	Errors FormErrors
}

// OK は登録に成功したかどうかを返します。
func (r SignupResult) OK() bool {
	return r.User != nil && r.Errors.Empty()
}

// Signup はフォームを検証し、問題がなければユーザーを作成します。
// 入力エラーは SignupResult.Errors に入り、error は永続化の失敗時のみ返します。
func (s *Service) Signup(ctx context.Context, form SignupForm) (SignupResult, error) {
	result := SignupResult{Errors: form.Validate()}

	if !result.Errors.Has("email") {
		_, err := s.repo.GetByEmail(ctx, form.Email)
		switch {
		case err == nil:
			result.Errors.AddField("email", msgEmailTaken)
		case !errors.Is(err, users.ErrNotFound):
			return result, fmt.Errorf("%w: lookup email: %w", ErrPersistence, err)
		}
	}
	if !result.Errors.Empty() {
		return result, nil
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			result.Errors.AddField("password", msgPasswordTooLong)
			return result, nil
		}
		return result, fmt.Errorf("hash password: %w", err)
	}

	user := &users.User{
		FullName:     form.FullName,
		Email:        form.Email,
		PhoneNumber:  form.PhoneNumber,
		PasswordHash: hash,
		IsActive:     true,
	}
	// 同じメールアドレスの同時登録はここで一意制約違反になる
	if err := s.repo.Create(ctx, user); err != nil {
		return result, fmt.Errorf("%w: create user: %w", ErrPersistence, err)
	}

	result.User = user
	return result, nil
}

// Match は識別子がどの項目で一致したかを表します。
type Match int

const (
	MatchNone Match = iota
	MatchEmail
	MatchPhone
)

func (m Match) String() string {
	switch m {
	case MatchEmail:
		return "email"
	case MatchPhone:
		return "phone"
	default:
		return "none"
	}
}

// Resolution は識別子の解決結果です。
type Resolution struct {
	User  *users.User
	Match Match
}

// ResolveIdentifier はメールアドレス、電話番号の順に完全一致で検索します。
// 見つからない場合は MatchNone を返し、エラーにはしません。
func ResolveIdentifier(ctx context.Context, repo users.Repository, identifier string) (Resolution, error) {
	user, err := repo.GetByEmail(ctx, identifier)
	if err == nil {
		return Resolution{User: user, Match: MatchEmail}, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return Resolution{}, fmt.Errorf("%w: lookup email: %w", ErrPersistence, err)
	}

	user, err = repo.GetByPhone(ctx, identifier)
	if err == nil {
		return Resolution{User: user, Match: MatchPhone}, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return Resolution{}, fmt.Errorf("%w: lookup phone: %w", ErrPersistence, err)
	}
	return Resolution{Match: MatchNone}, nil
}

// Failure はログイン失敗の種類です。
type Failure int

const (
	FailureNone Failure = iota
	// FailureInvalidCredentials は識別子不一致とパスワード不一致の両方を表します。
	FailureInvalidCredentials
	// FailureInactive は認証情報は正しいが無効化されたアカウントです。
	FailureInactive
)

// Message は利用者に表示するメッセージを返します。
func (f Failure) Message() string {
	switch f {
	case FailureInvalidCredentials:
		return msgInvalidCredential
	case FailureInactive:
		return msgInactiveAccount
	default:
		return ""
	}
}

// LoginResult はログイン検証の結果です。成功時のみ User が入ります。
type LoginResult struct {
	User    *users.User
	Match   Match
	Failure Failure
	Errors  FormErrors
}

// OK はログインに成功したかどうかを返します。
func (r LoginResult) OK() bool {
	return r.User != nil && r.Failure == FailureNone && r.Errors.Empty()
}

// Login は識別子とパスワードを検証します。状態は変更しません。
func (s *Service) Login(ctx context.Context, form LoginForm) (LoginResult, error) {
	result := LoginResult{Errors: form.Validate()}
	if !result.Errors.Empty() {
		return result, nil
	}

	res, err := ResolveIdentifier(ctx, s.repo, form.Identifier)
	if err != nil {
		return result, err
	}

	if res.Match == MatchNone {
		s.hasher.VerifyDummy(form.Password)
		return result.fail(FailureInvalidCredentials), nil
	}
	if !s.hasher.Verify(form.Password, res.User.PasswordHash) {
		return result.fail(FailureInvalidCredentials), nil
	}
	if !res.User.IsActive {
		return result.fail(FailureInactive), nil
	}

	result.User = res.User
	result.Match = res.Match
	return result, nil
}

func (r LoginResult) fail(f Failure) LoginResult {
	r.Failure = f
	r.Errors.AddNonField(f.Message())
	return r
}
