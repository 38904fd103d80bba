package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/mr-tron/base58"

	"github.com/solmeet-dev/solmeet-backend/internal/chain"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
)

// MemoProgramID is the on-chain memo program used for attestations.
const MemoProgramID = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

// CreateEvent writes an event attestation to the chain and returns its
// transaction signature.
func (c *Client) CreateEvent(ctx context.Context, event *models.Event) (string, error) {
	memo := fmt.Sprintf("%s:create:%s", c.namespace, event.ID)
	return c.submitMemo(ctx, memo)
}

// JoinEvent writes a participation attestation for the wallet.
func (c *Client) JoinEvent(ctx context.Context, eventID, wallet string) (string, error) {
	memo := fmt.Sprintf("%s:join:%s:%s", c.namespace, eventID, wallet)
	return c.submitMemo(ctx, memo)
}

func (c *Client) submitMemo(ctx context.Context, memo string) (string, error) {
	if c.payer == nil {
		return "", fmt.Errorf("%w: no payer key configured", chain.ErrUnavailable)
	}
	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return "", err
	}
	tx, err := buildMemoTransaction(c.payer, blockhash, memo)
	if err != nil {
		return "", err
	}
	signature, err := c.sendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	log.Printf("[Solana] 📝 attested %q as %s", memo, signature)
	return signature, nil
}

// buildMemoTransaction assembles and signs a legacy transaction whose
// single instruction is a memo. Wire layout: signature count and
// signatures, then the message (header, account keys, recent blockhash,
// instructions), all compact-array encoded.
func buildMemoTransaction(payer *Keypair, blockhash, memo string) (string, error) {
	if memo == "" {
		return "", errors.New("memo must not be empty")
	}
	blockhashRaw, err := base58.Decode(blockhash)
	if err != nil || len(blockhashRaw) != 32 {
		return "", fmt.Errorf("invalid blockhash %q", blockhash)
	}
	programRaw, err := base58.Decode(MemoProgramID)
	if err != nil {
		return "", fmt.Errorf("invalid memo program id: %w", err)
	}

	var msg []byte
	// header: 1 required signature, 0 readonly signed, 1 readonly unsigned
	msg = append(msg, 1, 0, 1)
	// account keys: payer, memo program
	msg = append(msg, encodeLength(2)...)
	msg = append(msg, payer.PublicKey...)
	msg = append(msg, programRaw...)
	msg = append(msg, blockhashRaw...)
	// one instruction: program index 1, no accounts, memo bytes as data
	msg = append(msg, encodeLength(1)...)
	msg = append(msg, 1)
	msg = append(msg, encodeLength(0)...)
	msg = append(msg, encodeLength(len(memo))...)
	msg = append(msg, memo...)

	signature := payer.Sign(msg)

	var tx []byte
	tx = append(tx, encodeLength(1)...)
	tx = append(tx, signature...)
	tx = append(tx, msg...)
	return base64.StdEncoding.EncodeToString(tx), nil
}

// encodeLength emits Solana's compact-u16 length prefix.
func encodeLength(n int) []byte {
	var out []byte
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}
