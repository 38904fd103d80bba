package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing key with its base58 Solana address.
type Keypair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair. It panics only when the
// system entropy source fails.
func NewKeypair() *Keypair {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("solana: keypair generation failed: %v", err))
	}
	return &Keypair{PublicKey: pub, PrivateKey: priv}
}

// KeypairFromSeed derives a deterministic keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{PublicKey: priv.Public().(ed25519.PublicKey), PrivateKey: priv}, nil
}

// KeypairFromBase58 restores a keypair from a base58-encoded seed, the
// form used in configuration.
func KeypairFromBase58(encoded string) (*Keypair, error) {
	seed, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 seed: %w", err)
	}
	return KeypairFromSeed(seed)
}

// Address returns the base58 public key, Solana's account address form.
func (k *Keypair) Address() string {
	return base58.Encode(k.PublicKey)
}

// SeedBase58 returns the base58 seed for storage or configuration.
func (k *Keypair) SeedBase58() string {
	return base58.Encode(k.PrivateKey.Seed())
}

// Sign produces a 64-byte ed25519 signature over message.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.PrivateKey, message)
}

// DecodeAddress turns a base58 address back into 32 raw bytes.
func DecodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("address is not a 32-byte public key")
	}
	return raw, nil
}

// ValidAddress reports whether address decodes to a well-formed public
// key. It does not check that the account exists.
func ValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}
