package wallet

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/solana"
)

func TestConnectHandshake(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	address := solana.NewKeypair().Address()

	link, err := svc.BeginConnect(ctx, testUserID)
	if err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}
	if !strings.HasPrefix(link.URL, "https://wallet.example.com/connect?state=") {
		t.Errorf("connect URL = %q, want wallet app base with state param", link.URL)
	}

	parsed, err := url.Parse(link.URL)
	if err != nil {
		t.Fatalf("connect URL does not parse: %v", err)
	}
	state := parsed.Query().Get("state")
	if state == "" {
		t.Fatal("connect URL carries no state token")
	}

	userID, err := svc.CompleteConnect(ctx, state, address, "sig-from-wallet-app")
	if err != nil {
		t.Fatalf("CompleteConnect: %v", err)
	}
	if userID != testUserID {
		t.Errorf("CompleteConnect user = %d, want %d", userID, testUserID)
	}

	linked, err := svc.WalletOf(ctx, testUserID)
	if err != nil {
		t.Fatalf("WalletOf: %v", err)
	}
	if linked != address {
		t.Errorf("linked wallet = %s, want %s", linked, address)
	}

	var record models.ConnectRequest
	found, err := svc.connects.Load(ctx, userKey(testUserID), &record)
	if err != nil || !found {
		t.Fatalf("connect record: found=%v err=%v", found, err)
	}
	if record.Status != models.ConnectStatusConnected {
		t.Errorf("connect record status = %s, want connected", record.Status)
	}
	if record.Address != address {
		t.Errorf("connect record address = %s, want %s", record.Address, address)
	}
}

func TestConnectTokenExpiry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	link, err := svc.BeginConnect(ctx, testUserID)
	if err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}
	state := stateFromLink(t, link.URL)

	svc.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = svc.CompleteConnect(ctx, state, solana.NewKeypair().Address(), "sig")
	if !errors.Is(err, ErrConnectExpired) {
		t.Errorf("err = %v, want ErrConnectExpired", err)
	}
}

func TestConnectGarbageToken(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CompleteConnect(context.Background(), "not.a.token", solana.NewKeypair().Address(), "sig")
	if !errors.Is(err, ErrConnectExpired) {
		t.Errorf("err = %v, want ErrConnectExpired", err)
	}
}

func TestConnectStaleNonce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.BeginConnect(ctx, testUserID)
	if err != nil {
		t.Fatalf("first BeginConnect: %v", err)
	}
	if _, err := svc.BeginConnect(ctx, testUserID); err != nil {
		t.Fatalf("second BeginConnect: %v", err)
	}

	// The second handshake replaces the pending record, so the first
	// token's nonce no longer matches.
	state := stateFromLink(t, first.URL)
	_, err = svc.CompleteConnect(ctx, state, solana.NewKeypair().Address(), "sig")
	if !errors.Is(err, ErrConnectExpired) {
		t.Errorf("err = %v, want ErrConnectExpired", err)
	}
}

func TestConnectBadAddress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	link, err := svc.BeginConnect(ctx, testUserID)
	if err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}
	state := stateFromLink(t, link.URL)
	_, err = svc.CompleteConnect(ctx, state, "definitely-not-base58!", "sig")
	if !errors.Is(err, ErrBadAddress) {
		t.Errorf("err = %v, want ErrBadAddress", err)
	}
}

func TestExpireStale(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base }
	if _, err := svc.BeginConnect(ctx, 1); err != nil {
		t.Fatalf("BeginConnect(1): %v", err)
	}
	if _, err := svc.BeginConnect(ctx, 2); err != nil {
		t.Fatalf("BeginConnect(2): %v", err)
	}

	// User 3 starts later and should survive the sweep.
	svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	if _, err := svc.BeginConnect(ctx, 3); err != nil {
		t.Fatalf("BeginConnect(3): %v", err)
	}

	svc.now = func() time.Time { return base.Add(20 * time.Minute) }
	expired, err := svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if expired != 2 {
		t.Errorf("expired = %d, want 2", expired)
	}

	var record models.ConnectRequest
	if found, err := svc.connects.Load(ctx, userKey(1), &record); err != nil || !found {
		t.Fatalf("connect record 1: found=%v err=%v", found, err)
	}
	if record.Status != models.ConnectStatusExpired {
		t.Errorf("record 1 status = %s, want expired", record.Status)
	}
	if found, err := svc.connects.Load(ctx, userKey(3), &record); err != nil || !found {
		t.Fatalf("connect record 3: found=%v err=%v", found, err)
	}
	if record.Status != models.ConnectStatusPending {
		t.Errorf("record 3 status = %s, want pending", record.Status)
	}

	// A second sweep finds nothing new.
	expired, err = svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("second ExpireStale: %v", err)
	}
	if expired != 0 {
		t.Errorf("second sweep expired = %d, want 0", expired)
	}
}

func stateFromLink(t *testing.T, raw string) string {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("connect URL does not parse: %v", err)
	}
	state := parsed.Query().Get("state")
	if state == "" {
		t.Fatal("connect URL carries no state token")
	}
	return state
}
