package mailer

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Template is a parsed template file: YAML front matter plus a text body.
type Template struct {
	Metadata map[string]any
	Body     string
}

var delimiter = []byte("---")

// ParseTemplate splits optional front matter from the body:
//
//	---
//	Subject: "{{.Domain}} is verified"
//	---
//	Body text...
func ParseTemplate(content []byte) (*Template, error) {
	if !bytes.HasPrefix(content, delimiter) {
		return &Template{Metadata: map[string]any{}, Body: string(content)}, nil
	}

	rest := bytes.TrimLeft(bytes.TrimPrefix(content, delimiter), "\r\n")
	end := bytes.Index(rest, delimiter)
	if end == -1 {
		return nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	front := rest[:end]
	body := bytes.TrimPrefix(rest[end+len(delimiter):], []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))

	meta := map[string]any{}
	if len(bytes.TrimSpace(front)) > 0 {
		if err := yaml.Unmarshal(front, &meta); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}
	return &Template{Metadata: meta, Body: string(body)}, nil
}

// Subject returns the Subject front matter key.
func (t *Template) Subject() string {
	s, _ := t.Metadata["Subject"].(string)
	return s
}
