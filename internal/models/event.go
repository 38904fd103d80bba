package models

import (
	"errors"
	"strings"
	"time"
)

// ============================================
// Event Models
// ============================================

// Field limits mirror the on-chain program's account layout. Anything
// longer would be truncated or rejected at attestation time, so they are
// enforced up front.
const (
	MaxEventIDLen     = 16
	MaxEventNameLen   = 50
	MaxEventDescLen   = 200
	MaxEventVenueLen  = 100
	MaxEventDateLen   = 30
	MaxEventCapacity  = 65535 // stored on chain as u16
	GeneratedIDLength = 8
)

// ChainRecord is the attestation outcome attached to an event or a
// participant. TxRef is either a real transaction signature or a synthetic
// "local-only:<reason>" marker; OnChain is true only for confirmed real
// submissions. Late confirmations may flip OnChain to true, never back.
type ChainRecord struct {
	TxRef   string `json:"txRef,omitempty"`
	OnChain bool   `json:"onChain"`
}

// LocalRefPrefix tags synthetic transaction references for records that
// exist locally but were never attested on chain.
const LocalRefPrefix = "local-only:"

// LocalRef builds a synthetic reference for the given failure reason.
func LocalRef(reason string) string {
	return LocalRefPrefix + reason
}

// IsLocalRef reports whether ref is a synthetic local-only marker rather
// than a real transaction signature.
func IsLocalRef(ref string) bool {
	return strings.HasPrefix(ref, LocalRefPrefix)
}

// Event is one durable event record. Capacity 0 means unbounded.
type Event struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Venue           string      `json:"venue"`
	Description     string      `json:"description"`
	Date            string      `json:"date"`
	Capacity        int         `json:"capacity"`
	OrganizerID     int64       `json:"organizerId"`
	OrganizerWallet string      `json:"organizerWallet"`
	CreatedAt       time.Time   `json:"createdAt"`
	Chain           ChainRecord `json:"chain"`
}

var (
	ErrEmptyEventName   = errors.New("event name is required")
	ErrEventNameTooLong = errors.New("event name exceeds 50 characters")
	ErrEventDescTooLong = errors.New("event description exceeds 200 characters")
	ErrVenueTooLong     = errors.New("event venue exceeds 100 characters")
	ErrDateTooLong      = errors.New("event date exceeds 30 characters")
	ErrInvalidCapacity  = errors.New("event capacity must be between 0 and 65535")
	ErrInvalidEventID   = errors.New("event code must be 1-16 letters or digits")
)

// Validate checks the on-chain field limits before an event is created.
func (e *Event) Validate() error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return ErrEmptyEventName
	case len(e.Name) > MaxEventNameLen:
		return ErrEventNameTooLong
	case len(e.Description) > MaxEventDescLen:
		return ErrEventDescTooLong
	case len(e.Venue) > MaxEventVenueLen:
		return ErrVenueTooLong
	case len(e.Date) > MaxEventDateLen:
		return ErrDateTooLong
	case e.Capacity < 0 || e.Capacity > MaxEventCapacity:
		return ErrInvalidCapacity
	}
	return NormalizeEventID(&e.ID)
}

// Unbounded reports whether the event has no participant cap.
func (e *Event) Unbounded() bool { return e.Capacity == 0 }

// NormalizeEventID uppercases and validates an event code in place.
// Codes are compared case-insensitively everywhere; the canonical form
// is uppercase.
func NormalizeEventID(id *string) error {
	code := strings.ToUpper(strings.TrimSpace(*id))
	if code == "" || len(code) > MaxEventIDLen {
		return ErrInvalidEventID
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ErrInvalidEventID
		}
	}
	*id = code
	return nil
}
