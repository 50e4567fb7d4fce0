package notify

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.txt
var templateFiles embed.FS

// Templates holds one email template per event, named <event>.txt.
var Templates fs.FS = mustSub(templateFiles, "templates")

// TemplateName returns the template file for an event name.
func TemplateName(event string) string { return event + ".txt" }

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
