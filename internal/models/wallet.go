package models

import "time"

// ============================================
// Wallet Models
// ============================================

// WalletRecord is a custodial wallet created by the bot. SealedKey holds
// the secretbox-encrypted ed25519 private key; the recovery phrase is
// shown once at creation time and never stored.
type WalletRecord struct {
	Address   string    `json:"address"`
	OwnerID   int64     `json:"ownerId"`
	SealedKey string    `json:"sealedKey"`
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"createdAt"`
}

// WalletLink maps a Telegram user to their active wallet address,
// whether custodial or externally connected.
type WalletLink struct {
	UserID    int64     `json:"userId"`
	Address   string    `json:"address"`
	Custodial bool      `json:"custodial"`
	LinkedAt  time.Time `json:"linkedAt"`
}

// ConnectStatus represents the state of a wallet-connect handshake.
type ConnectStatus string

const (
	ConnectStatusPending   ConnectStatus = "pending"
	ConnectStatusConnected ConnectStatus = "connected"
	ConnectStatusExpired   ConnectStatus = "expired"
)

// ConnectRequest is a pending deep-link handshake with an external
// wallet app. The nonce is embedded in the signed state token the wallet
// echoes back through the callback endpoint.
type ConnectRequest struct {
	UserID    int64         `json:"userId"`
	Nonce     string        `json:"nonce"`
	Status    ConnectStatus `json:"status"`
	Address   string        `json:"address,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ShortWallet abbreviates an address for display: first six and last
// four characters.
func ShortWallet(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
