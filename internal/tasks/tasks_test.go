package tasks_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/internal/notify"
	"github.com/dmitrymomot/customdomains/internal/tasks"
	"github.com/dmitrymomot/customdomains/pkg/certprovision"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/health"
	"github.com/dmitrymomot/customdomains/pkg/mailer"
)

type sweeperFunc func(ctx context.Context) (*certprovision.SweepReport, error)

func (f sweeperFunc) RenewalSweep(ctx context.Context) (*certprovision.SweepReport, error) {
	return f(ctx)
}

type recorder struct {
	sweeps   []*certprovision.SweepReport
	checks   map[string]health.Check
	mappings map[domainmap.Status]int
}

func (r *recorder) ObserveSweep(rep *certprovision.SweepReport) { r.sweeps = append(r.sweeps, rep) }

func (r *recorder) ObserveHealth(name string, c health.Check) {
	if r.checks == nil {
		r.checks = make(map[string]health.Check)
	}
	r.checks[name] = c
}

func (r *recorder) SetMappings(counts map[domainmap.Status]int) { r.mappings = counts }

func TestRenewalSweep(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		task := tasks.NewRenewalSweep(nil, nil, "", nil)
		assert.Equal(t, "renewal_sweep", task.Name())
		assert.Equal(t, "0 3 * * *", task.Schedule())
	})

	t.Run("records report", func(t *testing.T) {
		t.Parallel()

		report := &certprovision.SweepReport{
			Checked:  2,
			Expiring: []certprovision.ExpiringCertificate{{Domain: "a.example.com", DaysRemaining: 5}},
		}
		rec := &recorder{}
		task := tasks.NewRenewalSweep(sweeperFunc(func(context.Context) (*certprovision.SweepReport, error) {
			return report, nil
		}), rec, "15 4 * * *", nil)

		require.NoError(t, task.Handle(context.Background()))
		assert.Equal(t, "15 4 * * *", task.Schedule())
		require.Len(t, rec.sweeps, 1)
		assert.Same(t, report, rec.sweeps[0])
	})

	t.Run("returns sweep errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("registry down")
		task := tasks.NewRenewalSweep(sweeperFunc(func(context.Context) (*certprovision.SweepReport, error) {
			return nil, boom
		}), nil, "", nil)

		require.ErrorIs(t, task.Handle(context.Background()), boom)
	})
}

type counterFunc func(ctx context.Context) (map[domainmap.Status]int, error)

func (f counterFunc) CountByStatus(ctx context.Context) (map[domainmap.Status]int, error) {
	return f(ctx)
}

func TestHealthSample(t *testing.T) {
	t.Parallel()

	t.Run("records checks and mapping counts", func(t *testing.T) {
		t.Parallel()

		reg := domainmap.NewMemoryRegistry()
		ctx := context.Background()
		for i, s := range []domainmap.Status{domainmap.StatusPending, domainmap.StatusLive, domainmap.StatusLive} {
			require.NoError(t, reg.Create(ctx, &domainmap.Mapping{
				ID:      fmt.Sprintf("m%d", i),
				Domain:  fmt.Sprintf("d%d.example.com", i),
				OwnerID: 1,
				Status:  s,
			}, 10))
		}

		rec := &recorder{}
		task := tasks.NewHealthSample(health.Checks{
			"db":    func(context.Context) error { return nil },
			"redis": func(context.Context) error { return errors.New("down") },
		}, reg, rec, "", nil)

		assert.Equal(t, "health_sample", task.Name())
		assert.Equal(t, "*/30 * * * *", task.Schedule())
		require.NoError(t, task.Handle(ctx))

		assert.Equal(t, health.StatusHealthy, rec.checks["db"].Status)
		assert.Equal(t, health.StatusUnhealthy, rec.checks["redis"].Status)
		assert.Equal(t, map[domainmap.Status]int{domainmap.StatusPending: 1, domainmap.StatusLive: 2}, rec.mappings)
	})

	t.Run("count failure is not a task failure", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		task := tasks.NewHealthSample(nil, counterFunc(func(context.Context) (map[domainmap.Status]int, error) {
			return nil, errors.New("db down")
		}), rec, "", nil)

		require.NoError(t, task.Handle(context.Background()))
		assert.Nil(t, rec.mappings)
	})
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, p mailer.SendParams) error {
	return m.Called(ctx, p).Error(0)
}

func TestDeliverNotification(t *testing.T) {
	t.Parallel()

	dir := notify.NewStaticDirectory(
		notify.Owner{ID: 1, Email: "one@example.com", Active: true},
		notify.Owner{ID: 2, Active: true},
	)
	event := domainmap.Event{
		Name:       domainmap.EventApproved,
		MappingID:  "m1",
		Domain:     "shop.example.com",
		OwnerIDs:   []int64{1},
		OccurredAt: time.Now(),
	}

	t.Run("sends rendered template", func(t *testing.T) {
		t.Parallel()

		m := &mockMailer{}
		m.On("Send", mock.Anything, mock.MatchedBy(func(p mailer.SendParams) bool {
			return p.To == "one@example.com" && p.Template == "approved.txt" && p.Tags["event"] == "approved"
		})).Return(nil).Once()

		task := tasks.NewDeliverNotification(m, dir, nil)
		assert.Equal(t, notify.DeliveryTask, task.Name())
		require.NoError(t, task.Handle(context.Background(), notify.Delivery{Event: event, OwnerID: 1}))
		m.AssertExpectations(t)
	})

	t.Run("drops unknown owners and missing contacts", func(t *testing.T) {
		t.Parallel()

		m := &mockMailer{}
		task := tasks.NewDeliverNotification(m, dir, nil)

		require.NoError(t, task.Handle(context.Background(), notify.Delivery{Event: event, OwnerID: 2}))
		require.NoError(t, task.Handle(context.Background(), notify.Delivery{Event: event, OwnerID: 9}))
		m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("drops events without a template", func(t *testing.T) {
		t.Parallel()

		m := &mockMailer{}
		m.On("Send", mock.Anything, mock.Anything).
			Return(errors.Join(mailer.ErrRenderFailed, mailer.ErrTemplateNotFound)).Once()

		task := tasks.NewDeliverNotification(m, dir, nil)
		require.NoError(t, task.Handle(context.Background(), notify.Delivery{Event: domainmap.Event{Name: "custom"}, OwnerID: 1}))
	})

	t.Run("returns send errors for retry", func(t *testing.T) {
		t.Parallel()

		m := &mockMailer{}
		m.On("Send", mock.Anything, mock.Anything).Return(mailer.ErrSendFailed).Once()

		task := tasks.NewDeliverNotification(m, dir, nil)
		require.ErrorIs(t, task.Handle(context.Background(), notify.Delivery{Event: event, OwnerID: 1}), mailer.ErrSendFailed)
	})
}
