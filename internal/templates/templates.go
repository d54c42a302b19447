// Package templates は画面テンプレートを埋め込みで提供します。
package templates

import (
	"embed"
	"html/template"
)

//go:embed html/*.html
var files embed.FS

// Parse は埋め込まれたすべてのテンプレートを解析します。
// テンプレート名はファイル名（例: login.html）です。
func Parse() (*template.Template, error) {
	return template.ParseFS(files, "html/*.html")
}

// MustParse は Parse に失敗した場合 panic します。
func MustParse() *template.Template {
	return template.Must(Parse())
}
