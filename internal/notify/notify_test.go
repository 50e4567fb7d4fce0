package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/internal/notify"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/job"
	"github.com/dmitrymomot/customdomains/pkg/mailer"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error {
	return m.Called(ctx, name, payload, len(opts)).Error(0)
}

func TestJobNotifier(t *testing.T) {
	t.Parallel()

	t.Run("enqueues one delivery per owner", func(t *testing.T) {
		t.Parallel()

		enq := &mockEnqueuer{}
		e := domainmap.Event{Name: domainmap.EventTransferred, Domain: "shop.example.com", OwnerIDs: []int64{1, 2}}
		enq.On("Enqueue", mock.Anything, notify.DeliveryTask, notify.Delivery{Event: e, OwnerID: 1}, 2).Return(nil).Once()
		enq.On("Enqueue", mock.Anything, notify.DeliveryTask, notify.Delivery{Event: e, OwnerID: 2}, 2).Return(errors.New("queue down")).Once()

		err := notify.NewJobNotifier(enq, 5).Notify(context.Background(), e)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "owner 2")
		enq.AssertExpectations(t)
	})

	t.Run("skips events without owners", func(t *testing.T) {
		t.Parallel()

		enq := &mockEnqueuer{}
		require.NoError(t, notify.NewJobNotifier(enq, 5).Notify(context.Background(), domainmap.Event{Name: "x"}))
		enq.AssertNotCalled(t, "Enqueue")
	})
}

func TestMulti(t *testing.T) {
	t.Parallel()

	var calls []string
	boom := errors.New("boom")
	m := notify.Multi{
		domainmap.NotifierFunc(func(_ context.Context, e domainmap.Event) error {
			calls = append(calls, "a:"+e.Name)
			return nil
		}),
		nil,
		domainmap.NotifierFunc(func(_ context.Context, e domainmap.Event) error {
			calls = append(calls, "b:"+e.Name)
			return boom
		}),
		notify.NewLogNotifier(nil),
	}

	err := m.Notify(context.Background(), domainmap.Event{Name: "approved"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a:approved", "b:approved"}, calls)
}

func TestStaticDirectory(t *testing.T) {
	t.Parallel()

	dir, err := notify.ParseDirectory(strings.NewReader(`
owners:
  - id: 1
    email: one@example.com
    active: true
  - id: 2
    active: false
`))
	require.NoError(t, err)
	require.Equal(t, 2, dir.Len())

	ctx := context.Background()

	ok, err := dir.IsActive(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.IsActive(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dir.IsActive(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	email, err := dir.Contact(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "one@example.com", email)

	_, err = dir.Contact(ctx, 2)
	require.ErrorIs(t, err, notify.ErrNoContact)

	_, err = dir.Contact(ctx, 3)
	require.ErrorIs(t, err, notify.ErrUnknownOwner)

	dir.Put(notify.Owner{ID: 3, Email: "three@example.com", Active: true})
	ok, _ = dir.IsActive(ctx, 3)
	assert.True(t, ok)
}

func TestParseDirectory_Invalid(t *testing.T) {
	t.Parallel()

	_, err := notify.ParseDirectory(strings.NewReader("owners:\n  - id: 0\n"))
	require.ErrorIs(t, err, notify.ErrInvalidDirectory)

	_, err = notify.ParseDirectory(strings.NewReader("owners: [\n"))
	require.ErrorIs(t, err, notify.ErrInvalidDirectory)

	dir, err := notify.ParseDirectory(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, dir.Len())
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	r := mailer.NewRenderer(notify.Templates)
	events := map[string]map[string]any{
		domainmap.EventMappingCreated:  nil,
		domainmap.EventVerified:        nil,
		domainmap.EventApproved:        nil,
		domainmap.EventRejected:        {"reason": "parked page"},
		domainmap.EventTransferred:     {"old_owner_id": 1, "new_owner_id": 2, "reason": "sold"},
		domainmap.EventCertProvisioned: {"provider": "letsencrypt", "ssl_status": "pending"},
		domainmap.EventCertExpiring:    {"days_remaining": 12, "issuer": "R3", "not_after": "2026-01-01"},
	}

	for name, payload := range events {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			out, err := r.Render(notify.TemplateName(name), domainmap.Event{
				Name:    name,
				Domain:  "shop.example.com",
				Payload: payload,
			})
			require.NoError(t, err)
			assert.Contains(t, out.Subject, "shop.example.com")
			assert.Contains(t, out.Text, "shop.example.com")
			assert.NotContains(t, out.Text, "<no value>")
		})
	}
}
