// Package web embeds the HTML templates.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates
var Templates embed.FS

// ParseTemplates 每个文件用 define 声明带目录的名字，如 posts/index.html
func ParseTemplates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(Templates, "templates/*/*.html")
}
