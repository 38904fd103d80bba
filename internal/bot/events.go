package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/qr"
	"github.com/solmeet-dev/solmeet-backend/internal/repository"
	"github.com/solmeet-dev/solmeet-backend/internal/service"
	"github.com/solmeet-dev/solmeet-backend/internal/telegram"
)

const eventDateLayout = "2006-01-02 15:04"

func (b *Bot) handleCreateEvent(ctx context.Context, chatID int64, user models.UserRef) {
	address := b.walletOrPrompt(ctx, chatID, user.ID)
	if address == "" {
		return
	}

	b.startSession(chatID, session{
		step: stepEventName,
		draft: service.CreateEventInput{
			Organizer:       user,
			OrganizerWallet: address,
		},
	})
	b.reply(ctx, chatID,
		"Let's create a new event on Solana! 🚀\n\n"+
			"What name would you like to give your event?\n\n"+
			"(Send /cancel anytime to stop.)")
}

func (b *Bot) continueConversation(ctx context.Context, chatID int64, user models.UserRef, s session, text string) {
	switch s.step {
	case stepEventName:
		if len(text) > models.MaxEventNameLen {
			b.reply(ctx, chatID, fmt.Sprintf("That name is too long (max %d characters). Try a shorter one.", models.MaxEventNameLen))
			return
		}
		s.draft.Name = text
		s.step = stepEventVenue
		b.startSession(chatID, s)
		b.reply(ctx, chatID, fmt.Sprintf(
			"Great! Your event is named: *%s*\n\nNow, what's the venue or location for this event?", text))

	case stepEventVenue:
		if len(text) > models.MaxEventVenueLen {
			b.reply(ctx, chatID, fmt.Sprintf("That venue is too long (max %d characters). Try a shorter one.", models.MaxEventVenueLen))
			return
		}
		s.draft.Venue = text
		s.step = stepEventDate
		b.startSession(chatID, s)
		b.reply(ctx, chatID, fmt.Sprintf(
			"Venue set to: *%s*\n\nWhen will this event take place? (format: YYYY-MM-DD HH:MM)", text))

	case stepEventDate:
		if _, err := time.Parse(eventDateLayout, text); err != nil {
			b.reply(ctx, chatID, "Invalid date format. Please use YYYY-MM-DD HH:MM (e.g., 2026-12-31 15:00)")
			return
		}
		s.draft.Date = text
		s.step = stepEventDescription
		b.startSession(chatID, s)
		b.reply(ctx, chatID, fmt.Sprintf(
			"Date set to: *%s*\n\nNow, please provide a brief description of your event:", text))

	case stepEventDescription:
		if len(text) > models.MaxEventDescLen {
			b.reply(ctx, chatID, fmt.Sprintf("That description is too long (max %d characters). Try a shorter one.", models.MaxEventDescLen))
			return
		}
		s.draft.Description = text
		s.step = stepEventCapacity
		b.startSession(chatID, s)
		b.reply(ctx, chatID,
			"Description saved!\n\n"+
				"How many attendees can join? (enter a number, 0 for no limit)")

	case stepEventCapacity:
		capacity, err := strconv.Atoi(text)
		if err != nil || capacity < 0 || capacity > models.MaxEventCapacity {
			b.reply(ctx, chatID, fmt.Sprintf(
				"Please enter a number between 0 and %d (0 means no limit).", models.MaxEventCapacity))
			return
		}
		s.draft.Capacity = capacity
		s.step = stepEventConfirm
		b.startSession(chatID, s)
		b.replyMarkup(ctx, chatID, fmt.Sprintf(
			"*Event Summary*\n\n"+
				"*Name:* %s\n"+
				"*Venue:* %s\n"+
				"*Date:* %s\n"+
				"*Capacity:* %s\n"+
				"*Description:* %s\n\n"+
				"Is this information correct? Creating this event will record an "+
				"attestation on Solana Devnet.",
			s.draft.Name, s.draft.Venue, s.draft.Date, capacityLabel(s.draft.Capacity), s.draft.Description),
			&telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
				{Text: "Create Event", CallbackData: "create_confirm"},
				{Text: "Cancel", CallbackData: "create_cancel"},
			}}})

	case stepJoinCode:
		b.clearSession(chatID)
		b.submitJoin(ctx, chatID, user, text)

	default:
		b.clearSession(chatID)
	}
}

func (b *Bot) finalizeCreate(ctx context.Context, chatID int64, user models.UserRef) {
	s, ok := b.session(chatID)
	if !ok || s.step != stepEventConfirm {
		b.reply(ctx, chatID, "Something went wrong. Please start again with /create_event.")
		return
	}
	b.clearSession(chatID)
	b.reply(ctx, chatID, "Creating your event on Solana... This might take a moment.")

	event, err := b.members.CreateEvent(ctx, s.draft)
	if err != nil {
		log.Printf("[Bot] ⚠️ Event creation for user %d failed: %v", user.ID, err)
		b.reply(ctx, chatID, "There was an error creating your event. Please try again later.")
		return
	}

	chainLine := "⏳ Chain attestation pending - it will be retried automatically."
	if event.Chain.OnChain {
		chainLine = fmt.Sprintf("⛓ Attested on-chain: `%s`", event.Chain.TxRef)
	}
	b.reply(ctx, chatID, fmt.Sprintf(
		"🎉 *Event Created Successfully!*\n\n"+
			"*Event ID:* `%s`\n"+
			"*Name:* %s\n"+
			"*Venue:* %s\n"+
			"*Participants:* 1/%s\n\n"+
			"%s\n\n"+
			"Share this Event ID with attendees or have them scan the QR code.",
		event.ID, event.Name, event.Venue, capacityLabel(event.Capacity), chainLine))

	joinLink := qr.JoinLink(event.ID)
	caption := fmt.Sprintf("QR Code for event: %s (`%s`)", event.Name, event.ID)
	if err := b.client.SendPhoto(ctx, chatID, qr.ImageURL(joinLink, 300), caption); err != nil {
		log.Printf("[Bot] ⚠️ QR for event %s failed: %v", event.ID, err)
		b.reply(ctx, chatID, fmt.Sprintf("Attendees can join with: %s", joinLink))
	}
}

func (b *Bot) submitJoin(ctx context.Context, chatID int64, user models.UserRef, code string) {
	address := b.walletOrPrompt(ctx, chatID, user.ID)
	if address == "" {
		return
	}
	display := strings.ToUpper(strings.TrimSpace(code))

	_, err := b.members.RequestJoin(ctx, code, address, user)
	switch {
	case err == nil:
		b.reply(ctx, chatID, fmt.Sprintf(
			"Your request to join event %s has been sent to the organizer.\n\n"+
				"You will be notified when your request is approved or declined.", display))
	case errors.Is(err, repository.ErrEventNotFound):
		b.reply(ctx, chatID, fmt.Sprintf(
			"Event %s was not found. Double-check the code with the organizer.", display))
	case errors.Is(err, repository.ErrAlreadyPending):
		b.reply(ctx, chatID, fmt.Sprintf(
			"You already have a pending request to join event %s.\n\n"+
				"Please wait for the organizer to approve your request.", display))
	case errors.Is(err, repository.ErrAlreadyApproved):
		b.reply(ctx, chatID, fmt.Sprintf("You are already a participant of event %s.", display))
	case errors.Is(err, repository.ErrAlreadyDeclined):
		b.reply(ctx, chatID, fmt.Sprintf(
			"Your request to join event %s was declined by the organizer.", display))
	case errors.Is(err, service.ErrCapacityExceeded):
		b.reply(ctx, chatID, fmt.Sprintf("Event %s is already full.", display))
	default:
		log.Printf("[Bot] ⚠️ Join request for event %s failed: %v", display, err)
		b.reply(ctx, chatID, fmt.Sprintf(
			"There was an error sending your join request for event %s.", display))
	}
}

func (b *Bot) handleJoin(ctx context.Context, chatID int64, user models.UserRef, args string) {
	if args != "" {
		b.submitJoin(ctx, chatID, user, args)
		return
	}
	b.startSession(chatID, session{step: stepJoinCode})
	b.reply(ctx, chatID,
		"To join an event, please enter the Event ID shared by the organizer.\n\n"+
			"The Event ID is a short code like `ABC123`.")
}

func (b *Bot) handleMyEvents(ctx context.Context, chatID int64, user models.UserRef) {
	events, err := b.members.EventsOf(ctx, user.ID)
	if err != nil {
		log.Printf("[Bot] ⚠️ EventsOf for user %d failed: %v", user.ID, err)
		b.reply(ctx, chatID, "There was an error fetching your events. Please try again later.")
		return
	}
	if len(events.Organized) == 0 && len(events.Joined) == 0 {
		b.reply(ctx, chatID,
			"You haven't created or joined any events yet.\n\n"+
				"Use /create_event to create a new event or /join to join an existing one.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*Your Events*\n\n")
	if len(events.Organized) > 0 {
		sb.WriteString("*Events You Organize:*\n")
		for _, event := range events.Organized {
			count := "?"
			if participants, err := b.members.Participants(ctx, event.ID); err == nil {
				count = strconv.Itoa(len(participants))
			}
			fmt.Fprintf(&sb, "• *%s* %s\n  ID: `%s`\n  Venue: %s\n  Participants: %s/%s\n\n",
				event.Name, chainMarker(event.Chain), event.ID, event.Venue, count, capacityLabel(event.Capacity))
		}
	}
	if len(events.Joined) > 0 {
		sb.WriteString("*Events You Joined:*\n")
		for _, event := range events.Joined {
			fmt.Fprintf(&sb, "• *%s* %s\n  ID: `%s`\n  Venue: %s\n  Date: %s\n\n",
				event.Name, chainMarker(event.Chain), event.ID, event.Venue, event.Date)
		}
	}
	b.reply(ctx, chatID, sb.String())
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, user models.UserRef, args string) {
	if args == "" {
		b.reply(ctx, chatID, "Usage: /status `CODE`")
		return
	}
	address := b.walletOrPrompt(ctx, chatID, user.ID)
	if address == "" {
		return
	}
	display := strings.ToUpper(strings.TrimSpace(args))

	status, err := b.members.Status(ctx, args, address)
	if errors.Is(err, repository.ErrEventNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("Event %s was not found.", display))
		return
	}
	if err != nil {
		log.Printf("[Bot] ⚠️ Status lookup for event %s failed: %v", display, err)
		b.reply(ctx, chatID, "There was an error checking your status. Please try again later.")
		return
	}

	switch status {
	case models.RequestStatusApproved:
		b.reply(ctx, chatID, fmt.Sprintf("✅ You're a participant of event %s.", display))
	case models.RequestStatusPending:
		b.reply(ctx, chatID, fmt.Sprintf(
			"⏳ Your request for event %s is waiting for the organizer's decision.", display))
	case models.RequestStatusDeclined:
		b.reply(ctx, chatID, fmt.Sprintf(
			"❌ Your request for event %s was declined by the organizer.", display))
	default:
		b.reply(ctx, chatID, fmt.Sprintf(
			"You haven't requested to join event %s yet. Use /join %s to request.", display, display))
	}
}

func capacityLabel(capacity int) string {
	if capacity <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(capacity)
}

func chainMarker(chain models.ChainRecord) string {
	if chain.OnChain {
		return "⛓"
	}
	return "⏳"
}
