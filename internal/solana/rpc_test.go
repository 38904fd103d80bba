package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"github.com/solmeet-dev/solmeet-backend/internal/chain"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
)

// rpcFixture serves scripted JSON-RPC responses keyed by method.
type rpcFixture struct {
	t        *testing.T
	results  map[string]string
	errors   map[string]string
	requests []string
}

func (f *rpcFixture) handler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64            `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("bad rpc request: %v", err)
		return
	}
	f.requests = append(f.requests, req.Method)

	if msg, ok := f.errors[req.Method]; ok {
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"code":-32000,"message":%q}}`, req.ID, msg)
		return
	}
	result, ok := f.results[req.Method]
	if !ok {
		f.t.Errorf("unscripted rpc method %s", req.Method)
		result = "null"
	}
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, result)
}

func newRPCClient(t *testing.T, f *rpcFixture) *Client {
	t.Helper()
	f.t = t
	server := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(server.Close)

	return NewClient(Config{RPCURL: server.URL, Payer: NewKeypair(), Namespace: "solmeet"})
}

func TestGetBalance(t *testing.T) {
	client := newRPCClient(t, &rpcFixture{
		results: map[string]string{"getBalance": `{"context":{"slot":100},"value":2500000000}`},
	})

	lamports, err := client.GetBalance(context.Background(), "SomeAddress")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if lamports != 2_500_000_000 {
		t.Errorf("GetBalance = %d, want 2500000000", lamports)
	}
}

func TestRequestAirdrop(t *testing.T) {
	client := newRPCClient(t, &rpcFixture{
		results: map[string]string{"requestAirdrop": `"5AirdropSig"`},
	})

	sig, err := client.RequestAirdrop(context.Background(), "SomeAddress", LamportsPerSOL)
	if err != nil {
		t.Fatalf("RequestAirdrop: %v", err)
	}
	if sig != "5AirdropSig" {
		t.Errorf("signature = %q, want 5AirdropSig", sig)
	}
}

func TestRPCErrorSurfaces(t *testing.T) {
	client := newRPCClient(t, &rpcFixture{
		errors: map[string]string{"getBalance": "airdrop limit reached"},
	})

	_, err := client.GetBalance(context.Background(), "SomeAddress")
	if err == nil || !strings.Contains(err.Error(), "airdrop limit reached") {
		t.Fatalf("GetBalance error = %v, want the node's message", err)
	}
}

func TestUnreachableNodeMapsToUnavailable(t *testing.T) {
	client := NewClient(Config{RPCURL: "http://127.0.0.1:1", Payer: NewKeypair()})

	_, err := client.GetBalance(context.Background(), "SomeAddress")
	if !errors.Is(err, chain.ErrUnavailable) {
		t.Fatalf("GetBalance = %v, want chain.ErrUnavailable", err)
	}
}

func TestDeadlineMapsToTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer slow.Close()
	client := NewClient(Config{RPCURL: slow.URL, Payer: NewKeypair()})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := client.GetBalance(ctx, "SomeAddress")
	if !errors.Is(err, chain.ErrTimeout) {
		t.Fatalf("GetBalance = %v, want chain.ErrTimeout", err)
	}
}

func TestCreateEventSubmitsSignedMemo(t *testing.T) {
	blockhash := base58.Encode(bytes.Repeat([]byte{7}, 32))
	fixture := &rpcFixture{
		results: map[string]string{
			"getLatestBlockhash": fmt.Sprintf(
				`{"context":{"slot":1},"value":{"blockhash":%q,"lastValidBlockHeight":100}}`, blockhash),
			"sendTransaction": `"3MemoSig"`,
		},
	}
	client := newRPCClient(t, fixture)

	sig, err := client.CreateEvent(context.Background(), &models.Event{ID: "ABC123"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if sig != "3MemoSig" {
		t.Errorf("signature = %q, want 3MemoSig", sig)
	}
	if len(fixture.requests) != 2 || fixture.requests[0] != "getLatestBlockhash" || fixture.requests[1] != "sendTransaction" {
		t.Errorf("rpc sequence = %v, want blockhash then send", fixture.requests)
	}
}

func TestJoinEventWithoutPayer(t *testing.T) {
	client := NewClient(Config{RPCURL: "http://127.0.0.1:1"})

	_, err := client.JoinEvent(context.Background(), "ABC123", "WalletX")
	if !errors.Is(err, chain.ErrUnavailable) {
		t.Fatalf("JoinEvent = %v, want chain.ErrUnavailable", err)
	}
}

func TestGetSignatureStatuses(t *testing.T) {
	client := newRPCClient(t, &rpcFixture{
		results: map[string]string{
			"getSignatureStatuses": `{"context":{"slot":5},"value":[{"slot":4,"confirmationStatus":"finalized","err":null},null]}`,
		},
	})

	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"sigA", "sigB"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	if statuses[0] == nil || statuses[0].ConfirmationStatus != "finalized" {
		t.Errorf("statuses[0] = %+v, want finalized", statuses[0])
	}
	if statuses[1] != nil {
		t.Errorf("statuses[1] = %+v, want nil for an unknown signature", statuses[1])
	}
}
