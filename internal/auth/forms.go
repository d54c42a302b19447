package auth

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ユーザーに表示するメッセージ
const (
	msgRequired          = "This field is required."
	msgInvalidEmail      = "Enter a valid email address."
	msgInvalidValue      = "Enter a valid value."
	msgPasswordMismatch  = "Passwords do not match."
	msgPasswordTooLong   = "This password is too long."
	msgEmailTaken        = "A user with this email address already exists."
	msgInvalidCredential = "Please enter a correct email/phone and password. Note that both fields are case-sensitive."
	msgInactiveAccount   = "This account is inactive."
)

// FormErrors はフィールド単位のエラーとフォーム全体のエラーを保持します。
type FormErrors struct {
	Fields   map[string][]string
	NonField []string
}

// AddField はフィールドにエラーを追加します。
func (e *FormErrors) AddField(name, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[name] = append(e.Fields[name], message)
}

// AddNonField はフォーム全体（特定のフィールドに属さない）エラーを追加します。
func (e *FormErrors) AddNonField(message string) {
	e.NonField = append(e.NonField, message)
}

// Field はフィールドのエラー一覧を返します。テンプレートから呼び出します。
func (e FormErrors) Field(name string) []string {
	return e.Fields[name]
}

// Has はフィールドにエラーがあるかどうかを返します。
func (e FormErrors) Has(name string) bool {
	return len(e.Fields[name]) > 0
}

// Empty はエラーが1件もないかどうかを返します。
func (e FormErrors) Empty() bool {
	return len(e.Fields) == 0 && len(e.NonField) == 0
}

// SignupForm は登録フォームの入力値です。
type SignupForm struct {
	FullName        string `form:"full_name" binding:"required,max=150"`
	Email           string `form:"email" binding:"required,max=254,email"`
	PhoneNumber     string `form:"phone_number" binding:"omitempty,max=20"`
	Password        string `form:"password" binding:"required,max=128"`
	ConfirmPassword string `form:"confirm_password" binding:"required,max=128"`
}

// BindSignupForm は POST されたフォームから SignupForm を組み立てます。
// パスワードを含むすべての項目で前後の空白を取り除きます。
func BindSignupForm(c *gin.Context) SignupForm {
	return SignupForm{
		FullName:        strings.TrimSpace(c.PostForm("full_name")),
		Email:           strings.TrimSpace(c.PostForm("email")),
		PhoneNumber:     strings.TrimSpace(c.PostForm("phone_number")),
		Password:        strings.TrimSpace(c.PostForm("password")),
		ConfirmPassword: strings.TrimSpace(c.PostForm("confirm_password")),
	}
}

// Validate はフィールド単位の検証のあと、パスワードの一致を確認します。
func (f SignupForm) Validate() FormErrors {
	errs := validateFields(&f)

	// どちらかのパスワードがフィールド検証で落ちている場合は比較しない
	if !errs.Has("password") && !errs.Has("confirm_password") && f.Password != f.ConfirmPassword {
		errs.AddNonField(msgPasswordMismatch)
	}
	return errs
}

// Redisplay は再表示用にパスワードを取り除いたコピーを返します。
func (f SignupForm) Redisplay() SignupForm {
	f.Password = ""
	f.ConfirmPassword = ""
	return f
}

// LoginForm はログインフォームの入力値です。
// Identifier にはメールアドレスと電話番号のどちらが入るか分かりません。
type LoginForm struct {
	Identifier string `form:"identifier" binding:"required"`
	Password   string `form:"password" binding:"required"`
}

// BindLoginForm は POST されたフォームから LoginForm を組み立てます。
// 旧フォームのフィールド名 email も受け付けます。
func BindLoginForm(c *gin.Context) LoginForm {
	identifier := c.PostForm("identifier")
	if identifier == "" {
		identifier = c.PostForm("email")
	}
	return LoginForm{
		Identifier: strings.TrimSpace(identifier),
		Password:   strings.TrimSpace(c.PostForm("password")),
	}
}

// Validate は必須項目を確認します。
func (f LoginForm) Validate() FormErrors {
	return validateFields(&f)
}

// validateFields は binding タグに従って検証し、フォーム名ごとのエラーに変換します。
func validateFields(obj any) FormErrors {
	var errs FormErrors
	err := binding.Validator.ValidateStruct(obj)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.AddNonField(msgInvalidValue)
		return errs
	}

	typ := reflect.TypeOf(obj).Elem()
	for _, fe := range verrs {
		name := fe.StructField()
		if field, ok := typ.FieldByName(fe.StructField()); ok {
			if tag := field.Tag.Get("form"); tag != "" {
				name = tag
			}
		}
		errs.AddField(name, fieldMessage(fe))
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return msgInvalidEmail
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	default:
		return msgInvalidValue
	}
}
