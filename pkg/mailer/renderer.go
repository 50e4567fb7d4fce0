package mailer

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	texttemplate "text/template"
)

// Rendered is a template rendered with data.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// layout wraps the plain text body; every blank-line separated block
// becomes a paragraph.
var layout = htmltemplate.Must(htmltemplate.New("layout").Parse(`<!doctype html>
<html><body style="font-family:sans-serif;line-height:1.5">
{{range .}}<p>{{.}}</p>
{{end}}</body></html>
`))

// Renderer loads templates from a filesystem.
type Renderer struct {
	fsys fs.FS
}

// NewRenderer reads templates from fsys by file name.
func NewRenderer(fsys fs.FS) *Renderer {
	return &Renderer{fsys: fsys}
}

// Render executes the named template. Subject and body are both text
// templates over data.
func (r *Renderer) Render(name string, data any) (*Rendered, error) {
	raw, err := fs.ReadFile(r.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	tpl, err := ParseTemplate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	subject, err := execText(name+":subject", tpl.Subject(), data)
	if err != nil {
		return nil, err
	}
	text, err := execText(name, tpl.Body, data)
	if err != nil {
		return nil, err
	}

	var paragraphs []string
	for p := range strings.SplitSeq(strings.TrimSpace(text), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	var html bytes.Buffer
	if err := layout.Execute(&html, paragraphs); err != nil {
		return nil, err
	}

	return &Rendered{Subject: strings.TrimSpace(subject), Text: text, HTML: html.String()}, nil
}

func execText(name, src string, data any) (string, error) {
	t, err := texttemplate.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
