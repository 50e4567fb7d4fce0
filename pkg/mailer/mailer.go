package mailer

import (
	"context"
	"errors"
)

// Mailer renders templates and hands the result to a Sender.
type Mailer struct {
	sender   Sender
	renderer *Renderer
	config   Config
}

// New creates a Mailer.
func New(sender Sender, renderer *Renderer, cfg Config) *Mailer {
	return &Mailer{sender: sender, renderer: renderer, config: cfg}
}

// SendParams describes a templated email.
type SendParams struct {
	Data     any
	Tags     Tags
	To       string
	Template string
	Subject  string // overrides the template subject
	ReplyTo  string
}

// Send renders params.Template and delivers it. Subject resolution:
// params.Subject, then the template's front matter, then the fallback.
func (m *Mailer) Send(ctx context.Context, params SendParams) error {
	if params.To == "" {
		return ErrNoRecipient
	}

	out, err := m.renderer.Render(params.Template, params.Data)
	if err != nil {
		return errors.Join(ErrRenderFailed, err)
	}

	subject := params.Subject
	if subject == "" {
		subject = out.Subject
	}
	if subject == "" {
		subject = m.config.FallbackSubject
	}

	return m.SendRaw(ctx, &Email{
		To:      []string{params.To},
		Subject: subject,
		Text:    out.Text,
		HTML:    out.HTML,
		ReplyTo: params.ReplyTo,
		Tags:    params.Tags,
	})
}

// SendRaw delivers a prepared email.
func (m *Mailer) SendRaw(ctx context.Context, email *Email) error {
	switch {
	case len(email.To) == 0:
		return ErrNoRecipient
	case email.Subject == "":
		return ErrNoSubject
	case email.HTML == "" && email.Text == "":
		return ErrNoContent
	}
	if email.ReplyTo == "" {
		email.ReplyTo = m.config.ReplyTo
	}

	if err := m.sender.Send(ctx, email); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}
