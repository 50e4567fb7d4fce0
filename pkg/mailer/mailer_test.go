package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, email *Email) error {
	return m.Called(ctx, email).Error(0)
}

var testTemplates = fstest.MapFS{
	"verified.txt": &fstest.MapFile{Data: []byte(`---
Subject: "{{.Domain}} is verified"
---
We found the TXT record for {{.Domain}}.

Next step: <admin review>.
`)},
	"plain.txt":  &fstest.MapFile{Data: []byte("Hello {{.Domain}}")},
	"broken.txt": &fstest.MapFile{Data: []byte("---\nSubject: x\nno closing")},
	"missing.txt": &fstest.MapFile{Data: []byte(`---
Subject: x
---
{{.Nope}}`)},
}

type data struct {
	Domain string
}

func TestMailer_Send(t *testing.T) {
	t.Parallel()

	t.Run("renders subject text and html", func(t *testing.T) {
		t.Parallel()

		sender := &MockSender{}
		m := New(sender, NewRenderer(testTemplates), Config{FallbackSubject: "Update", ReplyTo: "support@example.com"})

		sender.On("Send", mock.Anything, mock.MatchedBy(func(e *Email) bool {
			return e.To[0] == "owner@example.com" &&
				e.Subject == "shop.example.com is verified" &&
				e.ReplyTo == "support@example.com" &&
				strings.Contains(e.Text, "TXT record for shop.example.com") &&
				strings.Contains(e.HTML, "<p>Next step: &lt;admin review&gt;.</p>")
		})).Return(nil).Once()

		err := m.Send(context.Background(), SendParams{
			To:       "owner@example.com",
			Template: "verified.txt",
			Data:     data{Domain: "shop.example.com"},
		})
		require.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("fallback subject", func(t *testing.T) {
		t.Parallel()

		sender := &MockSender{}
		m := New(sender, NewRenderer(testTemplates), Config{FallbackSubject: "Update"})
		sender.On("Send", mock.Anything, mock.MatchedBy(func(e *Email) bool {
			return e.Subject == "Update"
		})).Return(nil).Once()

		require.NoError(t, m.Send(context.Background(), SendParams{To: "a@example.com", Template: "plain.txt", Data: data{Domain: "x.com"}}))
		sender.AssertExpectations(t)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		sender := &MockSender{}
		m := New(sender, NewRenderer(testTemplates), Config{})
		ctx := context.Background()

		require.ErrorIs(t, m.Send(ctx, SendParams{Template: "plain.txt"}), ErrNoRecipient)

		err := m.Send(ctx, SendParams{To: "a@example.com", Template: "nope.txt"})
		require.ErrorIs(t, err, ErrRenderFailed)
		require.ErrorIs(t, err, ErrTemplateNotFound)

		require.ErrorIs(t, m.Send(ctx, SendParams{To: "a@example.com", Template: "broken.txt"}), ErrInvalidFrontmatter)
		require.ErrorIs(t, m.Send(ctx, SendParams{To: "a@example.com", Template: "missing.txt", Data: map[string]any{}}), ErrRenderFailed)

		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("rate limited")).Once()
		require.ErrorIs(t, m.Send(ctx, SendParams{To: "a@example.com", Template: "plain.txt", Subject: "s", Data: data{}}), ErrSendFailed)
	})
}

func TestMailer_SendRaw(t *testing.T) {
	t.Parallel()

	m := New(SenderFunc(func(context.Context, *Email) error { return nil }), nil, Config{})
	ctx := context.Background()

	require.ErrorIs(t, m.SendRaw(ctx, &Email{}), ErrNoRecipient)
	require.ErrorIs(t, m.SendRaw(ctx, &Email{To: []string{"a@example.com"}}), ErrNoSubject)
	require.ErrorIs(t, m.SendRaw(ctx, &Email{To: []string{"a@example.com"}, Subject: "s"}), ErrNoContent)
	require.NoError(t, m.SendRaw(ctx, &Email{To: []string{"a@example.com"}, Subject: "s", Text: "t"}))
}

func TestParseTemplate(t *testing.T) {
	t.Parallel()

	tpl, err := ParseTemplate([]byte("---\r\nSubject: Hi\r\n---\r\nBody"))
	require.NoError(t, err)
	assert.Equal(t, "Hi", tpl.Subject())
	assert.Equal(t, "Body", tpl.Body)

	tpl, err = ParseTemplate([]byte("No front matter"))
	require.NoError(t, err)
	assert.Empty(t, tpl.Subject())
	assert.Equal(t, "No front matter", tpl.Body)

	_, err = ParseTemplate([]byte("---\n: [bad\n---\nx"))
	require.ErrorIs(t, err, ErrInvalidFrontmatter)
}

func TestRecipientAndTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Shop <owner@example.com>", Recipient("Shop", "owner@example.com"))
	assert.Equal(t, "owner@example.com", Recipient("", "owner@example.com"))
	assert.Equal(t, Tags{"event": struct{}{}}, SimpleTags("event"))
}
