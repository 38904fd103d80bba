package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/solmeet-dev/solmeet-backend/internal/faucet"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/qr"
	"github.com/solmeet-dev/solmeet-backend/internal/solana"
)

// lowBalanceHint is the threshold under which /wallet suggests the faucet.
var lowBalanceHint = decimal.RequireFromString("0.1")

func (b *Bot) handleStart(ctx context.Context, chatID int64, user models.UserRef, args string) {
	// Deep link: t.me/<bot>?start=join_<CODE> arrives as "/start join_<CODE>".
	if code, ok := strings.CutPrefix(args, "join_"); ok {
		b.submitJoin(ctx, chatID, user, code)
		return
	}

	welcome := fmt.Sprintf(
		"Hello, %s! Welcome to *SolMeet* - your Web3 Event Manager on Solana.\n\n"+
			"I can help you create and join on-chain events using your Solana wallet.\n\n"+
			"*What can you do with SolMeet?*\n"+
			"- Create events with name, venue, description, and attendee limits\n"+
			"- Join events with unique codes or links\n"+
			"- Approve who gets into the events you organize\n"+
			"- Track your created and joined events on-chain\n\n"+
			"*Getting Started:*\n"+
			"1. Set up a wallet with /connect or /create_wallet\n"+
			"2. Create an event with /create_event or join one with /join\n"+
			"3. View your events with /my_events\n\n"+
			"Need SOL tokens for testing? Use /faucet to get some on Devnet.",
		user.FirstName)
	b.reply(ctx, chatID, welcome)
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID,
		"*SolMeet Commands*\n\n"+
			"/connect - Link an external Solana wallet\n"+
			"/create\\_wallet - Create a custodial wallet\n"+
			"/wallet - Show your wallet and balance\n"+
			"/create\\_event - Create a new event\n"+
			"/join `CODE` - Request to join an event\n"+
			"/my\\_events - Events you organize or joined\n"+
			"/requests `CODE` - Review pending join requests\n"+
			"/status `CODE` - Check your join request status\n"+
			"/faucet - Get devnet SOL")
}

func (b *Bot) handleConnect(ctx context.Context, chatID int64, user models.UserRef) {
	link, err := b.wallets.BeginConnect(ctx, user.ID)
	if err != nil {
		log.Printf("[Bot] ⚠️ BeginConnect for user %d failed: %v", user.ID, err)
		b.reply(ctx, chatID, "Could not start the wallet connection. Please try again later.")
		return
	}

	text := fmt.Sprintf(
		"*Connect Your Wallet*\n\n"+
			"Open the link below in your wallet app and approve the connection. "+
			"The link expires at %s.\n\n"+
			"No private keys are ever shared with the bot.\n\n"+
			"Prefer a managed wallet? Use /create_wallet instead.",
		link.ExpiresAt.UTC().Format("15:04 MST"))
	if err := b.client.SendPhoto(ctx, chatID, qr.ImageURL(link.URL, 300), text); err != nil {
		log.Printf("[Bot] ⚠️ Connect QR for user %d failed, sending plain link: %v", user.ID, err)
		b.reply(ctx, chatID, text+"\n\n"+link.URL)
		return
	}
	b.reply(ctx, chatID, link.URL)
}

func (b *Bot) handleCreateWallet(ctx context.Context, chatID int64, user models.UserRef) {
	created, err := b.wallets.Create(ctx, user)
	if err != nil {
		log.Printf("[Bot] ⚠️ Wallet creation for user %d failed: %v", user.ID, err)
		b.reply(ctx, chatID, "Could not create a wallet. Please try again later.")
		return
	}

	b.reply(ctx, chatID, fmt.Sprintf(
		"✅ *Wallet Created*\n\n"+
			"*Address:* `%s`\n\n"+
			"*Recovery phrase* (shown only once, save it somewhere safe):\n"+
			"`%s`\n\n"+
			"Anyone with this phrase controls the wallet. The bot keeps the key "+
			"encrypted so it can sign event attestations for you.",
		created.Address, created.RecoveryPhrase))
}

func (b *Bot) handleWallet(ctx context.Context, chatID int64, user models.UserRef) {
	link, err := b.wallets.LinkOf(ctx, user.ID)
	if err != nil {
		b.reply(ctx, chatID,
			"You don't have a wallet yet.\n\n"+
				"Use /connect to link an external wallet or /create_wallet for a custodial one.")
		return
	}

	kind := "external"
	if link.Custodial {
		kind = "custodial"
	}
	text := fmt.Sprintf("*Your Wallet*\n\n*Address:* `%s`\n*Type:* %s", link.Address, kind)

	if b.balances != nil {
		if lamports, err := b.balances.GetBalance(ctx, link.Address); err == nil {
			balance := solana.LamportsToSOL(lamports)
			text += fmt.Sprintf("\n*Balance:* %s SOL", balance)
			if balance.LessThan(lowBalanceHint) {
				text += "\n\nRunning low? Use /faucet to top up on Devnet."
			}
		} else {
			log.Printf("[Bot] ⚠️ Balance lookup for %s failed: %v", models.ShortWallet(link.Address), err)
			text += "\n*Balance:* unavailable right now"
		}
	}
	b.reply(ctx, chatID, text)
}

func (b *Bot) handleFaucet(ctx context.Context, chatID int64, user models.UserRef) {
	if b.faucet == nil {
		b.reply(ctx, chatID, "The faucet is unavailable while the bot runs without a Solana connection.")
		return
	}
	address := b.walletOrPrompt(ctx, chatID, user.ID)
	if address == "" {
		return
	}

	receipt, err := b.faucet.Drip(ctx, user.ID, address)
	if errors.Is(err, faucet.ErrFaucetCooldown) {
		b.reply(ctx, chatID, fmt.Sprintf("⏳ %s", capitalize(err.Error())))
		return
	}
	if err != nil {
		log.Printf("[Bot] ⚠️ Faucet drip for user %d failed: %v", user.ID, err)
		b.reply(ctx, chatID, "The airdrop failed. Devnet can be flaky - please try again in a minute.")
		return
	}

	text := fmt.Sprintf("💧 *Airdrop Sent!*\n\n*Amount:* %s SOL\n*Signature:* `%s`", receipt.Amount, receipt.Signature)
	if receipt.BalanceKnown {
		text += fmt.Sprintf("\n*New Balance:* %s SOL", receipt.Balance)
	}
	b.reply(ctx, chatID, text)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
