package models

import "time"

// ============================================
// Join Request Models
// ============================================

// RequestStatus represents the lifecycle state of a join request.
type RequestStatus string

const (
	RequestStatusNone     RequestStatus = "none"
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDeclined RequestStatus = "declined"
)

// Terminal reports whether the status admits no further transition.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusDeclined
}

// JoinRequest is one wallet's request to join one event. Approved and
// declined are terminal; DecidedBy/DecidedAt record the organizer's
// decision for auditing.
type JoinRequest struct {
	Wallet      string        `json:"wallet"`
	User        UserRef       `json:"user"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requestedAt"`
	DecidedBy   int64         `json:"decidedBy,omitempty"`
	DecidedAt   *time.Time    `json:"decidedAt,omitempty"`
}

// RequestBook is the durable per-event record of join requests, in
// submission order.
type RequestBook struct {
	Requests []*JoinRequest `json:"requests"`
}

// Find returns the request for wallet, or nil.
func (b *RequestBook) Find(wallet string) *JoinRequest {
	for _, r := range b.Requests {
		if r.Wallet == wallet {
			return r
		}
	}
	return nil
}

// Pending returns the pending requests in submission order.
func (b *RequestBook) Pending() []*JoinRequest {
	var out []*JoinRequest
	for _, r := range b.Requests {
		if r.Status == RequestStatusPending {
			out = append(out, r)
		}
	}
	return out
}
