package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/job"
	"github.com/dmitrymomot/customdomains/pkg/logger"
)

// DeliveryTask is the job name that turns an event into owner emails.
const DeliveryTask = "deliver_notification"

// LogNotifier writes every event to the log.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger discards events.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewNope()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, e domainmap.Event) error {
	n.log.InfoContext(ctx, "domain event",
		slog.String("event", e.Name),
		slog.String("mapping_id", e.MappingID),
		slog.String("domain", e.Domain),
		slog.Any("owner_ids", e.OwnerIDs),
	)
	return nil
}

// Enqueuer is the part of job.Manager and job.Enqueuer the JobNotifier needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
}

// Delivery is the payload of DeliveryTask: one event for one owner.
type Delivery struct {
	Event   domainmap.Event `json:"event"`
	OwnerID int64           `json:"owner_id"`
}

// JobNotifier hands events to the job queue so delivery happens outside
// the request that caused them. Each owner gets its own job, so a failed
// send is retried for that owner alone.
type JobNotifier struct {
	enq         Enqueuer
	queue       string
	maxAttempts int
}

// NewJobNotifier creates a JobNotifier that enqueues on job.QueueNotifications.
// Non-positive maxAttempts keeps the queue default.
func NewJobNotifier(enq Enqueuer, maxAttempts int) *JobNotifier {
	return &JobNotifier{enq: enq, queue: job.QueueNotifications, maxAttempts: maxAttempts}
}

func (n *JobNotifier) Notify(ctx context.Context, e domainmap.Event) error {
	var errs []error
	for _, owner := range e.OwnerIDs {
		err := n.enq.Enqueue(ctx, DeliveryTask, Delivery{Event: e, OwnerID: owner},
			job.InQueue(n.queue),
			job.MaxAttempts(n.maxAttempts),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("notify: enqueue %s for owner %d: %w", e.Name, owner, err))
		}
	}
	return errors.Join(errs...)
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []domainmap.Notifier

func (m Multi) Notify(ctx context.Context, e domainmap.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
