package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/customdomains/internal/notify"
	"github.com/dmitrymomot/customdomains/pkg/logger"
	"github.com/dmitrymomot/customdomains/pkg/mailer"
)

// Contacts resolves an owner to an email address.
type Contacts interface {
	Contact(ctx context.Context, ownerID int64) (string, error)
}

// Mailer sends a templated email. *mailer.Mailer implements it.
type Mailer interface {
	Send(ctx context.Context, params mailer.SendParams) error
}

// DeliverNotification emails one lifecycle event to one owner.
type DeliverNotification struct {
	mailer   Mailer
	contacts Contacts
	log      *slog.Logger
}

// NewDeliverNotification creates the task.
func NewDeliverNotification(m Mailer, contacts Contacts, log *slog.Logger) *DeliverNotification {
	if log == nil {
		log = logger.NewNope()
	}
	return &DeliverNotification{mailer: m, contacts: contacts, log: log}
}

func (t *DeliverNotification) Name() string { return notify.DeliveryTask }

// Handle drops deliveries that can never succeed (unknown owner, no
// template for the event) and returns send errors so the job is retried.
func (t *DeliverNotification) Handle(ctx context.Context, d notify.Delivery) error {
	log := t.log.With(
		slog.String("event", d.Event.Name),
		slog.String("domain", d.Event.Domain),
		slog.Int64("owner_id", d.OwnerID),
	)

	to, err := t.contacts.Contact(ctx, d.OwnerID)
	if errors.Is(err, notify.ErrUnknownOwner) || errors.Is(err, notify.ErrNoContact) {
		log.WarnContext(ctx, "notification dropped", slog.Any("error", err))
		return nil
	}
	if err != nil {
		return err
	}

	err = t.mailer.Send(ctx, mailer.SendParams{
		To:       to,
		Template: notify.TemplateName(d.Event.Name),
		Data:     d.Event,
		Tags:     mailer.Tags{"event": d.Event.Name},
	})
	if errors.Is(err, mailer.ErrTemplateNotFound) {
		log.WarnContext(ctx, "no template for event")
		return nil
	}
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "notification sent")
	return nil
}
