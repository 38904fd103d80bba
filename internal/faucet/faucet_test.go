package faucet

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solmeet-dev/solmeet-backend/internal/solana"
	"github.com/solmeet-dev/solmeet-backend/internal/store"
)

type fakeFunder struct {
	sig        string
	airdropErr error
	balance    uint64
	balanceErr error
	airdrops   int
}

func (f *fakeFunder) RequestAirdrop(ctx context.Context, address string, lamports uint64) (string, error) {
	f.airdrops++
	if f.airdropErr != nil {
		return "", f.airdropErr
	}
	return f.sig, nil
}

func (f *fakeFunder) GetBalance(ctx context.Context, address string) (uint64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

func newTestFaucet(t *testing.T, funder Funder) *Service {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return NewService(funder, st, decimal.NewFromInt(1), time.Hour)
}

func TestDrip(t *testing.T) {
	funder := &fakeFunder{sig: "airdrop-sig-1", balance: 1_500_000_000}
	svc := newTestFaucet(t, funder)
	address := solana.NewKeypair().Address()

	receipt, err := svc.Drip(context.Background(), 7, address)
	if err != nil {
		t.Fatalf("Drip: %v", err)
	}
	if receipt.Signature != "airdrop-sig-1" {
		t.Errorf("signature = %q, want airdrop-sig-1", receipt.Signature)
	}
	if !receipt.BalanceKnown {
		t.Fatal("balance should be known")
	}
	if !receipt.Balance.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("balance = %s, want 1.5", receipt.Balance)
	}
}

func TestDripCooldown(t *testing.T) {
	funder := &fakeFunder{sig: "sig", balance: 0}
	svc := newTestFaucet(t, funder)
	address := solana.NewKeypair().Address()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.Drip(context.Background(), 7, address); err != nil {
		t.Fatalf("first Drip: %v", err)
	}

	svc.now = func() time.Time { return base.Add(30 * time.Minute) }
	_, err := svc.Drip(context.Background(), 7, address)
	if !errors.Is(err, ErrFaucetCooldown) {
		t.Fatalf("err = %v, want ErrFaucetCooldown", err)
	}
	if !strings.Contains(err.Error(), "30m") {
		t.Errorf("cooldown error %q should name the remaining wait", err)
	}
	if funder.airdrops != 1 {
		t.Errorf("airdrops = %d, want 1 (cooldown must block the RPC call)", funder.airdrops)
	}

	// A different user is not affected.
	if _, err := svc.Drip(context.Background(), 8, address); err != nil {
		t.Errorf("Drip for second user: %v", err)
	}

	// After the cooldown lapses the first user can drip again.
	svc.now = func() time.Time { return base.Add(61 * time.Minute) }
	if _, err := svc.Drip(context.Background(), 7, address); err != nil {
		t.Errorf("Drip after cooldown: %v", err)
	}
}

func TestDripAirdropFailure(t *testing.T) {
	funder := &fakeFunder{airdropErr: errors.New("rpc down")}
	svc := newTestFaucet(t, funder)
	address := solana.NewKeypair().Address()

	if _, err := svc.Drip(context.Background(), 7, address); err == nil {
		t.Fatal("Drip should surface the airdrop failure")
	}

	// A failed airdrop must not start the cooldown.
	funder.airdropErr = nil
	funder.sig = "sig"
	if _, err := svc.Drip(context.Background(), 7, address); err != nil {
		t.Errorf("Drip retry after failure: %v", err)
	}
}

func TestDripBalanceFailureStillSucceeds(t *testing.T) {
	funder := &fakeFunder{sig: "sig", balanceErr: errors.New("rpc flake")}
	svc := newTestFaucet(t, funder)

	receipt, err := svc.Drip(context.Background(), 7, solana.NewKeypair().Address())
	if err != nil {
		t.Fatalf("Drip: %v", err)
	}
	if receipt.BalanceKnown {
		t.Error("balance should be unknown when the balance read fails")
	}
	if receipt.Signature != "sig" {
		t.Errorf("signature = %q, want sig", receipt.Signature)
	}
}

func TestDripBadAddress(t *testing.T) {
	svc := newTestFaucet(t, &fakeFunder{})
	if _, err := svc.Drip(context.Background(), 7, "nope"); err == nil {
		t.Fatal("Drip with a bad address should fail")
	}
}

func TestCompact(t *testing.T) {
	funder := &fakeFunder{sig: "sig"}
	svc := newTestFaucet(t, funder)
	address := solana.NewKeypair().Address()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base }
	if _, err := svc.Drip(context.Background(), 1, address); err != nil {
		t.Fatalf("Drip(1): %v", err)
	}
	svc.now = func() time.Time { return base.Add(45 * time.Minute) }
	if _, err := svc.Drip(context.Background(), 2, address); err != nil {
		t.Fatalf("Drip(2): %v", err)
	}

	// User 1's cooldown has lapsed, user 2's has not.
	svc.now = func() time.Time { return base.Add(70 * time.Minute) }
	removed, err := svc.Compact(context.Background())
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	// User 2 is still on cooldown after compaction.
	if _, err := svc.Drip(context.Background(), 2, address); !errors.Is(err, ErrFaucetCooldown) {
		t.Errorf("Drip(2) after compact: err = %v, want ErrFaucetCooldown", err)
	}

	removed, err = svc.Compact(context.Background())
	if err != nil {
		t.Fatalf("second Compact: %v", err)
	}
	if removed != 0 {
		t.Errorf("second compact removed = %d, want 0", removed)
	}
}
