package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/solmeet-dev/solmeet-backend/internal/chain"
)

// Client talks JSON-RPC to a Solana node and implements the engine's
// chain adapter with memo-style attestation transactions signed by the
// service payer key.
type Client struct {
	rpcURL    string
	wsURL     string
	payer     *Keypair
	namespace string
	http      *http.Client
	nextID    uint64
}

// Config wires a client. Namespace prefixes attestation memos; the
// deployed program id is commonly used so attestations group under it.
type Config struct {
	RPCURL    string
	WSURL     string
	Payer     *Keypair
	Namespace string
}

func NewClient(cfg Config) *Client {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "solmeet"
	}
	return &Client{
		rpcURL:    cfg.RPCURL,
		wsURL:     cfg.WSURL,
		payer:     cfg.Payer,
		namespace: namespace,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// PayerAddress returns the service wallet funding attestations.
func (c *Client) PayerAddress() string {
	if c.payer == nil {
		return ""
	}
	return c.payer.Address()
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.nextID, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", chain.ErrTimeout, method)
		}
		return fmt.Errorf("%w: %s: %v", chain.ErrUnavailable, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned HTTP %d", chain.ErrUnavailable, method, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s: %w", method, envelope.Error)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetBalance returns an account's balance in lamports.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	params := []interface{}{address, map[string]string{"commitment": "confirmed"}}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// RequestAirdrop asks the devnet faucet for lamports and returns the
// airdrop transaction signature.
func (c *Client) RequestAirdrop(ctx context.Context, address string, lamports uint64) (string, error) {
	var signature string
	if err := c.call(ctx, "requestAirdrop", []interface{}{address, lamports}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

func (c *Client) latestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	params := []interface{}{map[string]string{"commitment": "finalized"}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", err
	}
	return result.Value.Blockhash, nil
}

func (c *Client) sendTransaction(ctx context.Context, txBase64 string) (string, error) {
	var signature string
	params := []interface{}{txBase64, map[string]interface{}{"encoding": "base64"}}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// SignatureStatus is one entry of a getSignatureStatuses result.
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	ConfirmationStatus string      `json:"confirmationStatus"`
	Err                interface{} `json:"err"`
}

// GetSignatureStatuses looks up the confirmation state of signatures.
// Unknown signatures come back as nil entries.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	var result struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []interface{}{signatures, map[string]bool{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}
