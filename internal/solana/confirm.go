package solana

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solmeet-dev/solmeet-backend/internal/chain"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
)

// Confirm blocks until txRef is confirmed on chain or ctx expires.
// It prefers the websocket signature subscription and falls back to
// polling when no websocket endpoint is configured or the socket drops.
func (c *Client) Confirm(ctx context.Context, txRef string) error {
	if models.IsLocalRef(txRef) {
		return fmt.Errorf("%s is a local-only marker, nothing to confirm", txRef)
	}
	if c.wsURL != "" {
		err := c.awaitViaSocket(ctx, txRef)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: confirmation of %s", chain.ErrTimeout, txRef)
		}
		log.Printf("[Solana] ⚠️ signature subscription failed, polling instead: %v", err)
	}
	return c.pollSignature(ctx, txRef)
}

func (c *Client) awaitViaSocket(ctx context.Context, signature string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.wsURL, err)
	}
	defer conn.Close()

	subscribe := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "signatureSubscribe",
		"params": []interface{}{
			signature,
			map[string]string{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return err
		}
	}

	for {
		var msg struct {
			Method string `json:"method"`
			Params struct {
				Result struct {
					Value struct {
						Err interface{} `json:"err"`
					} `json:"value"`
				} `json:"result"`
			} `json:"params"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Method != "signatureNotification" {
			continue // subscription ack
		}
		if msg.Params.Result.Value.Err != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", signature, msg.Params.Result.Value.Err)
		}
		return nil
	}
}

func (c *Client) pollSignature(ctx context.Context, signature string) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		statuses, err := c.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", signature, status.Err)
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: confirmation of %s", chain.ErrTimeout, signature)
		case <-ticker.C:
		}
	}
}
