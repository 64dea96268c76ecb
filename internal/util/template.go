package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// templateFuncs are the helpers instruction templates may call.
var templateFuncs = template.FuncMap{
	"default": orDefault,
	"upper":   strings.ToUpper,
	"lower":   strings.ToLower,
	"title":   titleCase,
	"join":    joinAny,
}

// RenderTemplate expands {{ }} markers in instruction text against session
// state. Instructions go to models verbatim, so this uses text/template
// rather than html/template to avoid entity escaping. Text without markers
// is returned untouched.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("instruction").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func orDefault(fallback, val any) any {
	if val == nil || val == "" {
		return fallback
	}
	return val
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
}

func joinAny(sep string, items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%v", item)
	}
	return strings.Join(parts, sep)
}
