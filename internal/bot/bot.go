// Package bot maps Telegram commands and button presses onto the
// membership, wallet and faucet services.
package bot

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/solmeet-dev/solmeet-backend/internal/faucet"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/service"
	"github.com/solmeet-dev/solmeet-backend/internal/telegram"
	"github.com/solmeet-dev/solmeet-backend/internal/wallet"
)

// Messenger is the slice of the Telegram client the bot sends through.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageMarkup(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// BalanceReader is the slice of the RPC client /wallet reads through.
// Nil when the chain is disabled.
type BalanceReader interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// conversation step for the multi-message flows.
type step int

const (
	stepNone step = iota
	stepEventName
	stepEventVenue
	stepEventDate
	stepEventDescription
	stepEventCapacity
	stepEventConfirm
	stepJoinCode
)

type session struct {
	step  step
	draft service.CreateEventInput
}

// Bot routes updates from the poller. Conversation state lives in
// memory per chat; a restart simply drops half-finished drafts.
type Bot struct {
	client   Messenger
	members  service.MembershipService
	wallets  *wallet.Service
	faucet   *faucet.Service
	balances BalanceReader

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewBot(client Messenger, members service.MembershipService, wallets *wallet.Service, drip *faucet.Service, balances BalanceReader) *Bot {
	return &Bot{
		client:   client,
		members:  members,
		wallets:  wallets,
		faucet:   drip,
		balances: balances,
		sessions: make(map[int64]*session),
	}
}

// Commands is the menu published via setMyCommands.
func Commands() []telegram.BotCommand {
	return []telegram.BotCommand{
		{Command: "start", Description: "Welcome and quick start"},
		{Command: "help", Description: "List all commands"},
		{Command: "connect", Description: "Connect an external Solana wallet"},
		{Command: "create_wallet", Description: "Create a custodial wallet"},
		{Command: "wallet", Description: "Show your wallet and balance"},
		{Command: "create_event", Description: "Create a new event"},
		{Command: "join", Description: "Request to join an event by code"},
		{Command: "my_events", Description: "Events you organize or joined"},
		{Command: "requests", Description: "Review pending join requests"},
		{Command: "status", Description: "Check your join request status"},
		{Command: "faucet", Description: "Get devnet SOL"},
	}
}

// HandleUpdate implements telegram.Handler.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil && !update.Message.From.IsBot:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	user := userRef(msg.From)
	chatID := msg.Chat.ID

	if strings.HasPrefix(text, "/") {
		// A fresh command abandons any half-finished conversation.
		b.clearSession(chatID)
		command, args := splitCommand(text)
		b.handleCommand(ctx, chatID, user, command, args)
		return
	}

	if s, ok := b.session(chatID); ok {
		b.continueConversation(ctx, chatID, user, s, text)
		return
	}

	b.reply(ctx, chatID, "I'm not sure what you want to do. Try /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, user models.UserRef, command, args string) {
	switch command {
	case "start":
		b.handleStart(ctx, chatID, user, args)
	case "help":
		b.handleHelp(ctx, chatID)
	case "connect":
		b.handleConnect(ctx, chatID, user)
	case "create_wallet":
		b.handleCreateWallet(ctx, chatID, user)
	case "wallet":
		b.handleWallet(ctx, chatID, user)
	case "create_event":
		b.handleCreateEvent(ctx, chatID, user)
	case "join":
		b.handleJoin(ctx, chatID, user, args)
	case "my_events":
		b.handleMyEvents(ctx, chatID, user)
	case "requests":
		b.handleRequests(ctx, chatID, user, args)
	case "status":
		b.handleStatus(ctx, chatID, user, args)
	case "faucet":
		b.handleFaucet(ctx, chatID, user)
	case "cancel":
		// The session was already dropped on command entry.
		b.reply(ctx, chatID, "Cancelled. You can start again whenever you're ready.")
	default:
		b.reply(ctx, chatID, "Unknown command. Try /help for the list of commands.")
	}
}

// splitCommand separates "/join ABC123" into "join" and "ABC123",
// stripping the @botname suffix groups add.
func splitCommand(text string) (command, args string) {
	command = text[1:]
	if i := strings.IndexByte(command, ' '); i >= 0 {
		command, args = command[:i], strings.TrimSpace(command[i+1:])
	}
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	return command, args
}

func userRef(from *telegram.User) models.UserRef {
	return models.UserRef{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
}

// session returns a copy; updates go back via startSession. Updates
// for one chat can arrive on different goroutines, so handlers never
// share a mutable session.
func (b *Bot) session(chatID int64) (session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok {
		return session{}, false
	}
	return *s, true
}

func (b *Bot) startSession(chatID int64, s session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = &s
}

func (b *Bot) clearSession(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, chatID)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.client.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("[Bot] ⚠️ Failed to reply to chat %d: %v", chatID, err)
	}
}

func (b *Bot) replyMarkup(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) {
	if _, err := b.client.SendMessageMarkup(ctx, chatID, text, markup); err != nil {
		log.Printf("[Bot] ⚠️ Failed to reply to chat %d: %v", chatID, err)
	}
}

// walletOrPrompt resolves the user's linked wallet, prompting them to
// set one up when there is none. Returns "" after prompting.
func (b *Bot) walletOrPrompt(ctx context.Context, chatID int64, userID int64) string {
	address, err := b.wallets.WalletOf(ctx, userID)
	if errors.Is(err, wallet.ErrNoWalletLinked) {
		b.reply(ctx, chatID,
			"You need a wallet first.\n\n"+
				"Use /connect to link an external wallet or /create_wallet for a custodial one.")
		return ""
	}
	if err != nil {
		log.Printf("[Bot] ⚠️ Wallet lookup for user %d failed: %v", userID, err)
		b.reply(ctx, chatID, "Something went wrong looking up your wallet. Please try again later.")
		return ""
	}
	return address
}
