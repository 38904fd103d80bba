package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
)

// Gateway delivers one message to one chat. The Telegram client
// satisfies it; tests inject fakes.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// SubscriberSource resolves an event's notification subscribers; the
// participant ledger satisfies it.
type SubscriberSource interface {
	Subscribers(ctx context.Context, eventID string) ([]int64, error)
}

// Dispatcher fans event updates out to subscribers. Delivery is best
// effort: a recipient that cannot be reached is logged and skipped, and
// the remaining recipients are still notified. Dispatch failures never
// affect the membership state that triggered them.
type Dispatcher struct {
	gateway     Gateway
	subscribers SubscriberSource
}

func NewDispatcher(gateway Gateway, subscribers SubscriberSource) *Dispatcher {
	return &Dispatcher{gateway: gateway, subscribers: subscribers}
}

// JoinerAnnouncement tells every subscriber except the joiner that the
// roster grew.
func (d *Dispatcher) JoinerAnnouncement(ctx context.Context, event *models.Event, joiner *models.Participant, total int) error {
	subscribers, err := d.subscribers.Subscribers(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve subscribers for %s: %w", event.ID, err)
	}

	text := fmt.Sprintf(
		"🎉 *%s* just joined *%s*!\n\n🔑 Wallet: `%s`\n👥 Attendees so far: *%d*",
		joiner.User.DisplayName(), event.Name, models.ShortWallet(joiner.Wallet), total,
	)

	var errs []error
	for _, userID := range subscribers {
		if userID == 0 || userID == joiner.User.ID {
			continue // never announce the joiner to themselves
		}
		if err := d.gateway.SendMessage(ctx, userID, text); err != nil {
			log.Printf("[Notify] ⚠️ failed to notify user %d: %v", userID, err)
			errs = append(errs, fmt.Errorf("failed to notify user %d: %w", userID, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors sending join announcements: %v", errs)
	}
	return nil
}

// RequestReceived tells the organizer a wallet wants in. Nothing is
// sent when the organizer requested their own event.
func (d *Dispatcher) RequestReceived(ctx context.Context, event *models.Event, request *models.JoinRequest) error {
	if event.OrganizerID == 0 || event.OrganizerID == request.User.ID {
		return nil
	}
	text := fmt.Sprintf(
		"🙋 New join request for *%s*\n\nFrom: %s\n🔑 Wallet: `%s`\n\nUse /requests %s to review.",
		event.Name, request.User.DisplayName(), models.ShortWallet(request.Wallet), event.ID,
	)
	if err := d.gateway.SendMessage(ctx, event.OrganizerID, text); err != nil {
		log.Printf("[Notify] ⚠️ failed to notify organizer %d: %v", event.OrganizerID, err)
		return fmt.Errorf("failed to notify organizer %d: %w", event.OrganizerID, err)
	}
	return nil
}

// DecisionNotice tells the requester how the organizer decided.
func (d *Dispatcher) DecisionNotice(ctx context.Context, event *models.Event, request *models.JoinRequest, approved bool) error {
	if request.User.ID == 0 {
		return nil
	}
	var text string
	if approved {
		text = fmt.Sprintf(
			"✅ You're in! Your request to join *%s* was approved.\n\n📍 %s\n🗓 %s",
			event.Name, event.Venue, event.Date,
		)
	} else {
		text = fmt.Sprintf("❌ Your request to join *%s* was declined by the organizer.", event.Name)
	}
	if err := d.gateway.SendMessage(ctx, request.User.ID, text); err != nil {
		log.Printf("[Notify] ⚠️ failed to notify requester %d: %v", request.User.ID, err)
		return fmt.Errorf("failed to notify requester %d: %w", request.User.ID, err)
	}
	return nil
}
