// Package mailer renders notification emails from text templates and
// delivers them through a Sender (see the resend subpackage).
//
// Templates are plain text files with optional YAML front matter:
//
//	---
//	Subject: "{{.Domain}} is verified"
//	---
//	We found the TXT record for {{.Domain}}.
//
//	An administrator will review the domain shortly.
//
// The body is sent as the text part; the HTML part wraps each paragraph of
// the rendered text in a minimal layout with HTML escaping.
//
//	m := mailer.New(resend.New(resendCfg), mailer.NewRenderer(templates.FS), cfg)
//	err := m.Send(ctx, mailer.SendParams{
//		To:       "owner@example.com",
//		Template: "verified.txt",
//		Data:     event,
//	})
package mailer
