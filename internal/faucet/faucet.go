package faucet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/solana"
	"github.com/solmeet-dev/solmeet-backend/internal/store"
)

var ErrFaucetCooldown = errors.New("faucet cooldown active")

const ledgerKey = "cooldowns"

// Funder is the slice of the RPC client the faucet needs.
type Funder interface {
	RequestAirdrop(ctx context.Context, address string, lamports uint64) (string, error)
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// Service hands out devnet SOL with a per-user cooldown so one user
// cannot drain the airdrop allowance.
type Service struct {
	funder   Funder
	store    store.RecordStore
	amount   decimal.Decimal
	cooldown time.Duration

	mu  sync.Mutex
	now func() time.Time
}

type dripLedger struct {
	LastDrip map[string]time.Time `json:"last_drip"`
}

func NewService(funder Funder, st store.RecordStore, amountSOL decimal.Decimal, cooldown time.Duration) *Service {
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	if amountSOL.LessThanOrEqual(decimal.Zero) {
		amountSOL = decimal.NewFromInt(1)
	}
	return &Service{
		funder:   funder,
		store:    st,
		amount:   amountSOL,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Receipt reports a successful drip. Balance is best-effort; the
// airdrop already landed even when the balance read fails.
type Receipt struct {
	Signature    string
	Amount       decimal.Decimal
	Balance      decimal.Decimal
	BalanceKnown bool
}

// Drip sends the faucet amount to the address. A user on cooldown gets
// ErrFaucetCooldown with the remaining wait in the message.
func (s *Service) Drip(ctx context.Context, userID int64, address string) (*Receipt, error) {
	if !solana.ValidAddress(address) {
		return nil, fmt.Errorf("cannot airdrop to %q: not a valid address", address)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	userKey := strconv.FormatInt(userID, 10)
	if last, ok := ledger.LastDrip[userKey]; ok {
		elapsed := s.now().Sub(last)
		if elapsed < s.cooldown {
			remaining := (s.cooldown - elapsed).Round(time.Second)
			return nil, fmt.Errorf("%w: try again in %s", ErrFaucetCooldown, remaining)
		}
	}

	sig, err := s.funder.RequestAirdrop(ctx, address, solana.SOLToLamports(s.amount))
	if err != nil {
		return nil, fmt.Errorf("airdrop failed: %w", err)
	}

	ledger.LastDrip[userKey] = s.now().UTC()
	if err := s.store.Save(ctx, ledgerKey, ledger); err != nil {
		log.Printf("[Faucet] ⚠️ Airdrop sent but cooldown not recorded for user %d: %v", userID, err)
	}
	log.Printf("[Faucet] 💧 %s SOL to %s (user %d)", s.amount, models.ShortWallet(address), userID)

	receipt := &Receipt{Signature: sig, Amount: s.amount}
	if lamports, err := s.funder.GetBalance(ctx, address); err == nil {
		receipt.Balance = solana.LamportsToSOL(lamports)
		receipt.BalanceKnown = true
	} else {
		log.Printf("[Faucet] ⚠️ Balance check after airdrop failed: %v", err)
	}
	return receipt, nil
}

// Compact drops cooldown entries that have already lapsed. Run from
// the daily sweep so the ledger does not grow with every user ever
// served.
func (s *Service) Compact(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for key, last := range ledger.LastDrip {
		if s.now().Sub(last) >= s.cooldown {
			delete(ledger.LastDrip, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.store.Save(ctx, ledgerKey, ledger); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Service) loadLedger(ctx context.Context) (*dripLedger, error) {
	ledger := &dripLedger{}
	if _, err := s.store.Load(ctx, ledgerKey, ledger); err != nil {
		return nil, err
	}
	if ledger.LastDrip == nil {
		ledger.LastDrip = make(map[string]time.Time)
	}
	return ledger, nil
}
