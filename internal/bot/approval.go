package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/repository"
	"github.com/solmeet-dev/solmeet-backend/internal/service"
	"github.com/solmeet-dev/solmeet-backend/internal/telegram"
)

func (b *Bot) handleRequests(ctx context.Context, chatID int64, user models.UserRef, args string) {
	if args == "" {
		b.reply(ctx, chatID, "Usage: /requests `CODE`")
		return
	}
	display := strings.ToUpper(strings.TrimSpace(args))

	pending, err := b.members.PendingRequests(ctx, args, user.ID)
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		b.reply(ctx, chatID, fmt.Sprintf("Event %s was not found.", display))
		return
	case errors.Is(err, repository.ErrNotAuthorized):
		b.reply(ctx, chatID, "Only the event organizer can review join requests.")
		return
	case err != nil:
		log.Printf("[Bot] ⚠️ Pending requests for event %s failed: %v", display, err)
		b.reply(ctx, chatID, "There was an error fetching the requests. Please try again later.")
		return
	}

	if len(pending) == 0 {
		b.reply(ctx, chatID, fmt.Sprintf("There are no pending join requests for event %s.", display))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Pending Join Requests for Event %s:*\n\n", display)
	var keyboard [][]telegram.InlineKeyboardButton
	for _, request := range pending {
		name := request.User.DisplayName()
		fmt.Fprintf(&sb, "• %s (`%s`)\n", name, models.ShortWallet(request.Wallet))
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{
			{Text: fmt.Sprintf("✅ Approve %s", name), CallbackData: decisionData("approve", display, request.Wallet)},
			{Text: "❌ Decline", CallbackData: decisionData("decline", display, request.Wallet)},
		})
	}
	b.replyMarkup(ctx, chatID, sb.String(), &telegram.InlineKeyboardMarkup{InlineKeyboard: keyboard})
}

func (b *Bot) handleCallback(ctx context.Context, query *telegram.CallbackQuery) {
	user := userRef(&query.From)
	chatID := user.ID
	var messageID int64
	if query.Message != nil {
		chatID = query.Message.Chat.ID
		messageID = query.Message.MessageID
	}

	action, eventID, walletAddr, ok := parseDecisionData(query.Data)
	switch {
	case ok && action == "approve":
		b.answerCallback(ctx, query.ID, "")
		b.decideRequest(ctx, chatID, messageID, user, eventID, walletAddr, true)
	case ok && action == "decline":
		b.answerCallback(ctx, query.ID, "")
		b.decideRequest(ctx, chatID, messageID, user, eventID, walletAddr, false)
	case query.Data == "create_confirm":
		b.answerCallback(ctx, query.ID, "")
		b.finalizeCreate(ctx, chatID, user)
	case query.Data == "create_cancel":
		b.answerCallback(ctx, query.ID, "")
		b.clearSession(chatID)
		b.reply(ctx, chatID, "Event creation cancelled. You can start again with /create_event when you're ready.")
	default:
		log.Printf("[Bot] ⚠️ Unknown callback data %q from user %d", query.Data, user.ID)
		b.answerCallback(ctx, query.ID, "")
	}
}

func (b *Bot) decideRequest(ctx context.Context, chatID, messageID int64, decider models.UserRef, eventID, walletAddr string, approve bool) {
	display := strings.ToUpper(strings.TrimSpace(eventID))

	var err error
	if approve {
		_, err = b.members.Approve(ctx, eventID, walletAddr, decider.ID)
	} else {
		_, err = b.members.Decline(ctx, eventID, walletAddr, decider.ID)
	}

	var text string
	switch {
	case err == nil && approve:
		text = fmt.Sprintf(
			"✅ You have approved the join request for event %s.\n\n"+
				"The user with wallet `%s` has been added as a participant.",
			display, models.ShortWallet(walletAddr))
	case err == nil:
		text = fmt.Sprintf(
			"❌ You have declined the join request for event %s.\n\n"+
				"The user with wallet `%s` has been notified.",
			display, models.ShortWallet(walletAddr))
	case errors.Is(err, repository.ErrNotAuthorized):
		text = "Only the event organizer can decide join requests."
	case errors.Is(err, repository.ErrNoPendingRequest):
		text = fmt.Sprintf("There is no pending request from `%s` for event %s.",
			models.ShortWallet(walletAddr), display)
	case errors.Is(err, repository.ErrAlreadyApproved):
		text = fmt.Sprintf("That request for event %s was already approved.", display)
	case errors.Is(err, repository.ErrAlreadyDeclined):
		text = fmt.Sprintf("That request for event %s was already declined.", display)
	case errors.Is(err, service.ErrCapacityExceeded):
		text = fmt.Sprintf(
			"Event %s is already full, so this request cannot be approved.\n\n"+
				"It stays pending until you decline it or a spot opens up.", display)
	case errors.Is(err, repository.ErrEventNotFound):
		text = fmt.Sprintf("Event %s was not found.", display)
	default:
		log.Printf("[Bot] ⚠️ Decision on event %s failed: %v", display, err)
		text = fmt.Sprintf("There was an error processing the request for event %s. Please try again later.", display)
	}

	// Replace the message the button lived on, so the buttons cannot be
	// pressed twice.
	if messageID != 0 {
		if err := b.client.EditMessageText(ctx, chatID, messageID, text); err == nil {
			return
		}
	}
	b.reply(ctx, chatID, text)
}

func (b *Bot) answerCallback(ctx context.Context, callbackID, text string) {
	if err := b.client.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		log.Printf("[Bot] ⚠️ Failed to answer callback %s: %v", callbackID, err)
	}
}

func decisionData(action, eventID, walletAddr string) string {
	return fmt.Sprintf("%s_%s_%s", action, eventID, walletAddr)
}

// parseDecisionData splits "approve_<EVENT>_<WALLET>". Event codes are
// alphanumeric, so only the first two underscores separate fields.
func parseDecisionData(data string) (action, eventID, walletAddr string, ok bool) {
	if !strings.HasPrefix(data, "approve_") && !strings.HasPrefix(data, "decline_") {
		return "", "", "", false
	}
	parts := strings.SplitN(data, "_", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
