package repository

import (
	"context"
	"errors"
	"time"

	"github.com/solmeet-dev/solmeet-backend/internal/keylock"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/store"
)

var (
	ErrAlreadyPending   = errors.New("join request already pending")
	ErrAlreadyApproved  = errors.New("wallet is already a participant of this event")
	ErrAlreadyDeclined  = errors.New("join request was declined")
	ErrNoPendingRequest = errors.New("no pending join request for this wallet")
	ErrNotAuthorized    = errors.New("only the event organizer can decide join requests")
)

// OrganizerResolver answers who organizes an event; the event catalog
// satisfies it.
type OrganizerResolver interface {
	OrganizerOf(ctx context.Context, eventID string) (int64, error)
}

// ParticipantChecker answers whether a wallet is already enrolled; the
// participant ledger satisfies it.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, eventID, wallet string) (bool, error)
}

// JoinRequestLedger drives the request state machine for each
// (event, wallet) pair: absent -> pending -> approved | declined.
// Approved and declined are terminal; a wallet already on the roster
// reads as approved even without a request record.
type JoinRequestLedger interface {
	Submit(ctx context.Context, eventID, wallet string, user models.UserRef) (*models.JoinRequest, error)
	Approve(ctx context.Context, eventID, wallet string, deciderID int64) (*models.JoinRequest, error)
	Decline(ctx context.Context, eventID, wallet string, deciderID int64) (*models.JoinRequest, error)
	StatusOf(ctx context.Context, eventID, wallet string) (models.RequestStatus, error)
	Get(ctx context.Context, eventID, wallet string) (*models.JoinRequest, error)
	ListPending(ctx context.Context, eventID string) ([]*models.JoinRequest, error)
}

type joinRequestLedger struct {
	store        store.RecordStore
	organizers   OrganizerResolver
	participants ParticipantChecker
	locks        *keylock.Map
	now          func() time.Time
}

func NewJoinRequestLedger(st store.RecordStore, organizers OrganizerResolver, participants ParticipantChecker) JoinRequestLedger {
	return &joinRequestLedger{
		store:        st,
		organizers:   organizers,
		participants: participants,
		locks:        keylock.New(),
		now:          time.Now,
	}
}

// Submit opens a pending request. Duplicate submissions are refused with
// an error naming the state that blocked them; the stored record is
// untouched in every refusal case.
func (l *joinRequestLedger) Submit(ctx context.Context, eventID, wallet string, user models.UserRef) (*models.JoinRequest, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return nil, err
	}
	lock := l.locks.Get(eventID)
	lock.Lock()
	defer lock.Unlock()

	enrolled, err := l.participants.IsParticipant(ctx, eventID, wallet)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyApproved
	}

	book, err := l.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if existing := book.Find(wallet); existing != nil {
		switch existing.Status {
		case models.RequestStatusPending:
			return nil, ErrAlreadyPending
		case models.RequestStatusApproved:
			return nil, ErrAlreadyApproved
		case models.RequestStatusDeclined:
			return nil, ErrAlreadyDeclined
		}
	}

	request := &models.JoinRequest{
		Wallet:      wallet,
		User:        user,
		Status:      models.RequestStatusPending,
		RequestedAt: l.now().UTC(),
	}
	book.Requests = append(book.Requests, request)
	if err := l.store.Save(ctx, eventID, book); err != nil {
		return nil, err
	}
	return request, nil
}

func (l *joinRequestLedger) Approve(ctx context.Context, eventID, wallet string, deciderID int64) (*models.JoinRequest, error) {
	return l.decide(ctx, eventID, wallet, deciderID, models.RequestStatusApproved)
}

func (l *joinRequestLedger) Decline(ctx context.Context, eventID, wallet string, deciderID int64) (*models.JoinRequest, error) {
	return l.decide(ctx, eventID, wallet, deciderID, models.RequestStatusDeclined)
}

// decide moves a pending request to a terminal state. Authorization is
// checked before anything else so a non-organizer learns nothing about
// the request's state and changes nothing.
func (l *joinRequestLedger) decide(ctx context.Context, eventID, wallet string, deciderID int64, verdict models.RequestStatus) (*models.JoinRequest, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return nil, err
	}
	organizerID, err := l.organizers.OrganizerOf(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if deciderID != organizerID {
		return nil, ErrNotAuthorized
	}

	lock := l.locks.Get(eventID)
	lock.Lock()
	defer lock.Unlock()

	book, err := l.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	request := book.Find(wallet)
	if request == nil {
		return nil, ErrNoPendingRequest
	}
	switch request.Status {
	case models.RequestStatusApproved:
		return nil, ErrAlreadyApproved
	case models.RequestStatusDeclined:
		return nil, ErrAlreadyDeclined
	}

	request.Status = verdict
	request.DecidedBy = deciderID
	decidedAt := l.now().UTC()
	request.DecidedAt = &decidedAt
	if err := l.store.Save(ctx, eventID, book); err != nil {
		return nil, err
	}
	return request, nil
}

// StatusOf reports none, pending, approved or declined. Roster
// membership wins: an enrolled wallet is approved regardless of its
// request record.
func (l *joinRequestLedger) StatusOf(ctx context.Context, eventID, wallet string) (models.RequestStatus, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return models.RequestStatusNone, err
	}
	enrolled, err := l.participants.IsParticipant(ctx, eventID, wallet)
	if err != nil {
		return models.RequestStatusNone, err
	}
	if enrolled {
		return models.RequestStatusApproved, nil
	}
	book, err := l.load(ctx, eventID)
	if err != nil {
		return models.RequestStatusNone, err
	}
	if request := book.Find(wallet); request != nil {
		return request.Status, nil
	}
	return models.RequestStatusNone, nil
}

func (l *joinRequestLedger) Get(ctx context.Context, eventID, wallet string) (*models.JoinRequest, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return nil, err
	}
	book, err := l.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return book.Find(wallet), nil
}

func (l *joinRequestLedger) ListPending(ctx context.Context, eventID string) ([]*models.JoinRequest, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return nil, err
	}
	book, err := l.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return book.Pending(), nil
}

func (l *joinRequestLedger) load(ctx context.Context, eventID string) (*models.RequestBook, error) {
	book := &models.RequestBook{}
	if _, err := l.store.Load(ctx, eventID, book); err != nil {
		return nil, err
	}
	return book, nil
}
