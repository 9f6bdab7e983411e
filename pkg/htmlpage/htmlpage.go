// Package htmlpage assembles static HTML pages out of caller-supplied
// markup fragments.
package htmlpage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/vlad-ds/street-view-mcp/pkg/localfile"
)

// DefaultTitle is used when the caller supplies none.
const DefaultTitle = "Street View Tour"

// Fragments are trusted caller markup, so this goes through text/template:
// html/template would escape them.
const boilerplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: sans-serif; margin: 2em auto; max-width: 900px; }
        img { max-width: 100%; }
    </style>
</head>
<body>
{{- range .Fragments}}
{{.}}
{{- end}}
</body>
</html>
`

var pageTmpl = template.Must(template.New("page").Parse(boilerplate))

// Build renders the fragments, in order, into the fixed page shell.
func Build(fragments []string, title string) ([]byte, error) {
	if title == "" {
		title = DefaultTitle
	}
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Title     string
		Fragments []string
	}{title, fragments})
	if err != nil {
		return nil, fmt.Errorf("error rendering page: %w", err)
	}
	return buf.Bytes(), nil
}

// Create assembles the page and writes it under dir, creating dir on demand.
// A ".html" extension is appended when missing. An existing target fails
// with localfile.ErrAlreadyExists; the returned path is the file written.
func Create(dir, name string, fragments []string, title string) (string, error) {
	if !strings.HasSuffix(name, ".html") {
		name += ".html"
	}
	page, err := Build(fragments, title)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := localfile.WriteNew(path, page); err != nil {
		return "", err
	}
	return path, nil
}
