package models

import "time"

// ============================================
// Participant / Roster Models
// ============================================

// Participant is one enrolled wallet on an event's roster.
type Participant struct {
	Wallet   string      `json:"wallet"`
	User     UserRef     `json:"user"`
	JoinedAt time.Time   `json:"joinedAt"`
	Chain    ChainRecord `json:"chain"`
}

// Roster is the durable per-event membership record: participants in
// join order plus the notification subscriber set.
type Roster struct {
	Participants []*Participant `json:"participants"`
	Subscribers  []int64        `json:"subscribers"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Find returns the participant with the given wallet, or nil.
func (r *Roster) Find(wallet string) *Participant {
	for _, p := range r.Participants {
		if p.Wallet == wallet {
			return p
		}
	}
	return nil
}

// Count returns the number of enrolled participants.
func (r *Roster) Count() int { return len(r.Participants) }

// Subscribed reports whether userID is in the subscriber set.
func (r *Roster) Subscribed(userID int64) bool {
	for _, id := range r.Subscribers {
		if id == userID {
			return true
		}
	}
	return false
}
