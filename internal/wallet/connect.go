package wallet

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/solana"
)

// ConnectLink is handed to the user as a deep link into their wallet
// app; the state token comes back on the callback.
type ConnectLink struct {
	URL       string
	Nonce     string
	ExpiresAt time.Time
}

// BeginConnect starts the external-wallet handshake: a one-time nonce,
// a signed state token, and a pending record the callback resolves.
func (s *Service) BeginConnect(ctx context.Context, userID int64) (*ConnectLink, error) {
	nonce := uuid.NewString()
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"nonce": nonce,
		"exp":   expiresAt.Unix(),
		"iat":   now.Unix(),
	})
	state, err := token.SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign connect token: %w", err)
	}

	record := &models.ConnectRequest{
		UserID:    userID,
		Nonce:     nonce,
		Status:    models.ConnectStatusPending,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := s.connects.Save(ctx, userKey(userID), record); err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s?state=%s", s.connectURL, url.QueryEscape(state))
	return &ConnectLink{URL: link, Nonce: nonce, ExpiresAt: expiresAt}, nil
}

// CompleteConnect resolves the callback from the wallet app. The state
// token proves the handshake came from us and is still fresh; the
// signature is recorded but not verified against the address.
func (s *Service) CompleteConnect(ctx context.Context, state, address, signature string) (int64, error) {
	claims, err := s.parseState(state)
	if err != nil {
		return 0, err
	}
	userID, nonce, err := connectClaims(claims)
	if err != nil {
		return 0, err
	}
	if !solana.ValidAddress(address) {
		return 0, ErrBadAddress
	}

	var record models.ConnectRequest
	found, err := s.connects.Load(ctx, userKey(userID), &record)
	if err != nil {
		return 0, err
	}
	if !found || record.Status != models.ConnectStatusPending || record.Nonce != nonce {
		return 0, ErrConnectExpired
	}

	record.Status = models.ConnectStatusConnected
	record.Address = address
	record.UpdatedAt = s.now().UTC()
	if err := s.connects.Save(ctx, userKey(userID), &record); err != nil {
		return 0, err
	}
	if err := s.link(ctx, userID, address, false); err != nil {
		return 0, err
	}

	log.Printf("[Wallet] 🔗 user %d connected %s (sig %.12s...)", userID, models.ShortWallet(address), signature)
	return userID, nil
}

func (s *Service) parseState(state string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrConnectExpired
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrConnectExpired
	}
	return claims, nil
}

func connectClaims(claims jwt.MapClaims) (userID int64, nonce string, err error) {
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", ErrConnectExpired
	}
	nonce, ok = claims["nonce"].(string)
	if !ok || nonce == "" {
		return 0, "", ErrConnectExpired
	}
	return int64(sub), nonce, nil
}

// ExpireStale flips pending connect records older than the TTL to
// expired. Returns how many it touched.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	keys, err := s.connects.Keys(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.ttl)
	expired := 0
	for _, key := range keys {
		var record models.ConnectRequest
		found, err := s.connects.Load(ctx, key, &record)
		if err != nil {
			log.Printf("[Wallet] ⚠️ Skipping unreadable connect record %s: %v", key, err)
			continue
		}
		if !found || record.Status != models.ConnectStatusPending || record.CreatedAt.After(cutoff) {
			continue
		}
		record.Status = models.ConnectStatusExpired
		record.UpdatedAt = s.now().UTC()
		if err := s.connects.Save(ctx, key, &record); err != nil {
			log.Printf("[Wallet] ⚠️ Failed to expire connect record %s: %v", key, err)
			continue
		}
		expired++
	}
	return expired, nil
}
