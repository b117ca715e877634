package notification

import (
	"context"
	"fmt"

	"innsync_backend/internal/events"

	"github.com/google/uuid"
)

// RegisterHandlers subscribes the notifier to reconciliation events.
func RegisterHandlers(bus events.Bus, svc *Service) {
	bus.Subscribe("ota.message.reconciled", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.MessageReconciled)
		if !ok {
			return nil
		}
		svc.Send(ctx, fromReconciled(ev))
		return nil
	}))

	bus.Subscribe("ota.message.reconcile_failed", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.ReconcileFailed)
		if !ok {
			return nil
		}
		svc.Send(ctx, CreateParams{
			Title:    "Booking import failed",
			Content:  fmt.Sprintf("Message %s from %s could not be imported: %s", ev.MessageID, ev.Platform, ev.Error),
			Category: CategoryError,
			Platform: ev.Platform,
			Data:     ev,
		})
		return nil
	}))
}

func fromReconciled(ev events.MessageReconciled) CreateParams {
	var propertyID *uuid.UUID
	if ev.PropertyID != uuid.Nil {
		id := ev.PropertyID
		propertyID = &id
	}

	p := CreateParams{
		PropertyID: propertyID,
		Platform:   ev.Platform,
		Data:       ev,
	}

	guest := ev.GuestName
	if guest == "" {
		guest = "guest"
	}

	switch {
	case ev.Reason != "":
		p.Title = "Booking message needs review"
		p.Content = fmt.Sprintf("Message %s from %s was recorded without a booking change (%s).", ev.MessageID, ev.Platform, ev.Reason)
		p.Category = CategoryWarning
	case ev.Action == "create":
		p.Title = "New OTA booking imported"
		p.Content = fmt.Sprintf("A booking for %s was created from %s.", guest, ev.Platform)
		p.Category = CategorySuccess
	case ev.Action == "update":
		p.Title = "OTA booking updated"
		p.Content = fmt.Sprintf("The booking for %s was updated from %s.", guest, ev.Platform)
		p.Category = CategoryInfo
	case ev.Action == "cancel":
		p.Title = "OTA booking cancelled"
		p.Content = fmt.Sprintf("The booking for %s was cancelled via %s.", guest, ev.Platform)
		p.Category = CategoryWarning
	default:
		p.Title = "OTA message processed"
		p.Content = fmt.Sprintf("Message %s from %s was recorded with no booking change.", ev.MessageID, ev.Platform)
		p.Category = CategoryInfo
	}
	return p
}
