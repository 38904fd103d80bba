package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/solana"
	"github.com/solmeet-dev/solmeet-backend/internal/store"
)

var (
	ErrNoWalletLinked = errors.New("no wallet linked for this user")
	ErrConnectExpired = errors.New("wallet connect request is invalid or expired")
	ErrBadAddress     = errors.New("not a valid Solana address")
)

// Service is the wallet directory: custodial wallets created by the
// bot, links from users to their active address, and the deep-link
// handshake for connecting an external wallet app.
type Service struct {
	wallets    store.RecordStore // custodial keystore, keyed by address
	links      store.RecordStore // user -> address, keyed by user id
	connects   store.RecordStore // pending handshakes, keyed by user id
	signingKey []byte
	sealKey    [32]byte
	connectURL string
	ttl        time.Duration
	now        func() time.Time
}

// Config carries the wallet secrets and the external wallet app URL.
type Config struct {
	TokenSecret    string
	KeystoreSecret string
	ConnectBaseURL string
	ConnectTTL     time.Duration
}

func NewService(wallets, links, connects store.RecordStore, cfg Config) *Service {
	ttl := cfg.ConnectTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		wallets:    wallets,
		links:      links,
		connects:   connects,
		signingKey: []byte(cfg.TokenSecret),
		sealKey:    sha256.Sum256([]byte(cfg.KeystoreSecret)),
		connectURL: cfg.ConnectBaseURL,
		ttl:        ttl,
		now:        time.Now,
	}
}

// CreatedWallet is returned once; the recovery phrase is never stored.
type CreatedWallet struct {
	Address        string
	RecoveryPhrase string
}

// Create makes a custodial wallet for the user: a BIP-39 phrase, the
// keypair derived from it, and the private key sealed at rest. The
// new wallet becomes the user's linked address.
func (s *Service) Create(ctx context.Context, user models.UserRef) (*CreatedWallet, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recovery phrase: %w", err)
	}
	seed := bip39.NewSeed(mnemonic, "")[:ed25519.SeedSize]
	keypair, err := solana.KeypairFromSeed(seed)
	if err != nil {
		return nil, err
	}

	sealed, nonce, err := s.seal(keypair.PrivateKey)
	if err != nil {
		return nil, err
	}
	record := &models.WalletRecord{
		Address:   keypair.Address(),
		OwnerID:   user.ID,
		SealedKey: sealed,
		Nonce:     nonce,
		CreatedAt: s.now().UTC(),
	}
	if err := s.wallets.Save(ctx, record.Address, record); err != nil {
		return nil, err
	}
	if err := s.link(ctx, user.ID, record.Address, true); err != nil {
		return nil, err
	}

	log.Printf("[Wallet] 🪪 created custodial wallet %s for user %d", models.ShortWallet(record.Address), user.ID)
	return &CreatedWallet{Address: record.Address, RecoveryPhrase: mnemonic}, nil
}

// Link attaches an external address to the user, replacing any
// previous link.
func (s *Service) Link(ctx context.Context, userID int64, address string) error {
	if !solana.ValidAddress(address) {
		return ErrBadAddress
	}
	return s.link(ctx, userID, address, false)
}

func (s *Service) link(ctx context.Context, userID int64, address string, custodial bool) error {
	return s.links.Save(ctx, userKey(userID), &models.WalletLink{
		UserID:    userID,
		Address:   address,
		Custodial: custodial,
		LinkedAt:  s.now().UTC(),
	})
}

// WalletOf returns the user's active address.
func (s *Service) WalletOf(ctx context.Context, userID int64) (string, error) {
	var link models.WalletLink
	found, err := s.links.Load(ctx, userKey(userID), &link)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNoWalletLinked
	}
	return link.Address, nil
}

// LinkOf returns the full link record, custodial flag included.
func (s *Service) LinkOf(ctx context.Context, userID int64) (*models.WalletLink, error) {
	var link models.WalletLink
	found, err := s.links.Load(ctx, userKey(userID), &link)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoWalletLinked
	}
	return &link, nil
}

// Unlink forgets the user's wallet link. Custodial key material stays
// in the keystore so the wallet can be re-linked later.
func (s *Service) Unlink(ctx context.Context, userID int64) error {
	return s.links.Delete(ctx, userKey(userID))
}

// CustodialKey opens the keystore for a custodial address.
func (s *Service) CustodialKey(ctx context.Context, address string) (*solana.Keypair, error) {
	var record models.WalletRecord
	found, err := s.wallets.Load(ctx, address, &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no custodial wallet stored for %s", models.ShortWallet(address))
	}
	priv, err := s.open(record.SealedKey, record.Nonce)
	if err != nil {
		return nil, err
	}
	return &solana.Keypair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

func (s *Service) seal(priv ed25519.PrivateKey) (sealed, nonce string, err error) {
	var n [24]byte
	if _, err := rand.Read(n[:]); err != nil {
		return "", "", fmt.Errorf("failed to generate keystore nonce: %w", err)
	}
	box := secretbox.Seal(nil, priv, &n, &s.sealKey)
	return base58.Encode(box), base58.Encode(n[:]), nil
}

func (s *Service) open(sealed, nonce string) (ed25519.PrivateKey, error) {
	box, err := base58.Decode(sealed)
	if err != nil {
		return nil, fmt.Errorf("corrupt keystore entry: %w", err)
	}
	nonceRaw, err := base58.Decode(nonce)
	if err != nil || len(nonceRaw) != 24 {
		return nil, errors.New("corrupt keystore nonce")
	}
	var n [24]byte
	copy(n[:], nonceRaw)
	priv, ok := secretbox.Open(nil, box, &n, &s.sealKey)
	if !ok {
		return nil, errors.New("keystore decryption failed, wrong KEYSTORE_SECRET?")
	}
	return ed25519.PrivateKey(priv), nil
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
