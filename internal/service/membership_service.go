package service

import (
	"context"
	"errors"
	"log"

	"github.com/solmeet-dev/solmeet-backend/internal/chain"
	"github.com/solmeet-dev/solmeet-backend/internal/keylock"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/notification"
	"github.com/solmeet-dev/solmeet-backend/internal/repository"
)

var (
	ErrCapacityExceeded = errors.New("event is at capacity")
	ErrWalletRequired   = errors.New("a linked wallet is required")
)

// CreateEventInput carries everything needed to publish a new event.
type CreateEventInput struct {
	Name            string
	Venue           string
	Description     string
	Date            string
	Capacity        int
	Organizer       models.UserRef
	OrganizerWallet string
}

// UserEvents groups a user's events by their relationship to them.
type UserEvents struct {
	Organized []*models.Event
	Joined    []*models.Event
}

// MembershipService orchestrates the event lifecycle: publishing,
// join requests, organizer decisions, enrollment and the chain
// attestation around them. Local state always commits first; chain
// submissions run outside the per-event lock and never block or undo a
// local transition.
type MembershipService interface {
	CreateEvent(ctx context.Context, input CreateEventInput) (*models.Event, error)
	RequestJoin(ctx context.Context, eventID, wallet string, user models.UserRef) (*models.JoinRequest, error)
	Approve(ctx context.Context, eventID, wallet string, deciderID int64) (*models.Participant, error)
	Decline(ctx context.Context, eventID, wallet string, deciderID int64) (*models.JoinRequest, error)
	Status(ctx context.Context, eventID, wallet string) (models.RequestStatus, error)
	PendingRequests(ctx context.Context, eventID string, requesterID int64) ([]*models.JoinRequest, error)
	Participants(ctx context.Context, eventID string) ([]*models.Participant, error)
	Event(ctx context.Context, eventID string) (*models.Event, error)
	EventsOf(ctx context.Context, userID int64) (*UserEvents, error)
}

type membershipService struct {
	catalog  repository.EventCatalog
	requests repository.JoinRequestLedger
	roster   repository.ParticipantLedger
	guard    *chain.Guard
	notifier *notification.Dispatcher
	locks    *keylock.Map
}

func NewMembershipService(
	catalog repository.EventCatalog,
	requests repository.JoinRequestLedger,
	roster repository.ParticipantLedger,
	guard *chain.Guard,
	notifier *notification.Dispatcher,
) MembershipService {
	return &membershipService{
		catalog:  catalog,
		requests: requests,
		roster:   roster,
		guard:    guard,
		notifier: notifier,
		locks:    keylock.New(),
	}
}

// CreateEvent publishes an event and enrolls the organizer as its first
// participant and subscriber. All of that is durable before the chain
// attestation is attempted; a failed or slow attestation leaves the
// event local-only.
func (s *membershipService) CreateEvent(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	if input.OrganizerWallet == "" {
		return nil, ErrWalletRequired
	}

	event := &models.Event{
		Name:            input.Name,
		Venue:           input.Venue,
		Description:     input.Description,
		Date:            input.Date,
		Capacity:        input.Capacity,
		OrganizerID:     input.Organizer.ID,
		OrganizerWallet: input.OrganizerWallet,
	}
	if err := s.catalog.Create(ctx, event); err != nil {
		return nil, err
	}

	organizer := &models.Participant{
		Wallet: input.OrganizerWallet,
		User:   input.Organizer,
	}
	if _, _, err := s.roster.Add(ctx, event.ID, organizer); err != nil {
		return nil, err
	}
	if err := s.roster.Subscribe(ctx, event.ID, input.Organizer.ID); err != nil {
		return nil, err
	}

	eventID := event.ID
	wallet := input.OrganizerWallet
	sub := s.guard.CreateEvent(ctx, event, func(txRef string) {
		s.upgradeEvent(eventID, wallet, txRef)
	})
	s.recordEventChain(ctx, eventID, wallet, sub.Chain())
	event.Chain = sub.Chain()
	return event, nil
}

// RequestJoin opens a pending request and tells the organizer. Full
// events are refused up front so attendees are not left waiting on a
// decision that could never be approved.
func (s *membershipService) RequestJoin(ctx context.Context, eventID, wallet string, user models.UserRef) (*models.JoinRequest, error) {
	event, err := s.catalog.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if wallet == "" {
		return nil, ErrWalletRequired
	}
	if !event.Unbounded() {
		count, err := s.roster.Count(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		if count >= event.Capacity {
			return nil, ErrCapacityExceeded
		}
	}

	request, err := s.requests.Submit(ctx, event.ID, wallet, user)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.RequestReceived(ctx, event, request); err != nil {
		log.Printf("[Service] join request stored, organizer notice failed: %v", err)
	}
	return request, nil
}

// Approve settles a pending request, enrolls the wallet and announces
// the new participant. The chain attestation runs after the local
// state is committed and outside the event lock; its outcome only ever
// updates chain fields.
func (s *membershipService) Approve(ctx context.Context, eventID, wallet string, deciderID int64) (*models.Participant, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return nil, repository.ErrEventNotFound
	}

	lock := s.locks.Get(eventID)
	lock.Lock()

	event, err := s.catalog.Get(ctx, eventID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if !event.Unbounded() {
		count, err := s.roster.Count(ctx, eventID)
		if err != nil {
			lock.Unlock()
			return nil, err
		}
		if count >= event.Capacity {
			// refused before any state change: the request stays
			// pending for an explicit decline
			lock.Unlock()
			return nil, ErrCapacityExceeded
		}
	}

	request, err := s.requests.Approve(ctx, eventID, wallet, deciderID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	participant, _, err := s.roster.Add(ctx, eventID, &models.Participant{
		Wallet: wallet,
		User:   request.User,
	})
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if err := s.roster.Subscribe(ctx, eventID, request.User.ID); err != nil {
		lock.Unlock()
		return nil, err
	}
	lock.Unlock()

	sub := s.guard.JoinEvent(ctx, eventID, wallet, func(txRef string) {
		s.upgradeParticipant(eventID, wallet, txRef)
	})
	if err := s.roster.SetChainRecord(ctx, eventID, wallet, sub.Chain()); err != nil {
		log.Printf("[Service] ⚠️ failed to record chain outcome for %s/%s: %v", eventID, wallet, err)
	}
	participant.Chain = sub.Chain()

	count, err := s.roster.Count(ctx, eventID)
	if err != nil {
		count = 0
	}
	if err := s.notifier.DecisionNotice(ctx, event, request, true); err != nil {
		log.Printf("[Service] approval stored, requester notice failed: %v", err)
	}
	if err := s.notifier.JoinerAnnouncement(ctx, event, participant, count); err != nil {
		log.Printf("[Service] approval stored, announcement incomplete: %v", err)
	}
	return participant, nil
}

// Decline settles a pending request negatively and tells the requester.
// Declined is terminal: the wallet cannot re-request this event.
func (s *membershipService) Decline(ctx context.Context, eventID, wallet string, deciderID int64) (*models.JoinRequest, error) {
	event, err := s.catalog.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	request, err := s.requests.Decline(ctx, event.ID, wallet, deciderID)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.DecisionNotice(ctx, event, request, false); err != nil {
		log.Printf("[Service] decline stored, requester notice failed: %v", err)
	}
	return request, nil
}

func (s *membershipService) Status(ctx context.Context, eventID, wallet string) (models.RequestStatus, error) {
	if _, err := s.catalog.Get(ctx, eventID); err != nil {
		return models.RequestStatusNone, err
	}
	return s.requests.StatusOf(ctx, eventID, wallet)
}

// PendingRequests lists a queue only its organizer may see.
func (s *membershipService) PendingRequests(ctx context.Context, eventID string, requesterID int64) ([]*models.JoinRequest, error) {
	organizerID, err := s.catalog.OrganizerOf(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if requesterID != organizerID {
		return nil, repository.ErrNotAuthorized
	}
	return s.requests.ListPending(ctx, eventID)
}

func (s *membershipService) Participants(ctx context.Context, eventID string) ([]*models.Participant, error) {
	if _, err := s.catalog.Get(ctx, eventID); err != nil {
		return nil, err
	}
	return s.roster.List(ctx, eventID)
}

func (s *membershipService) Event(ctx context.Context, eventID string) (*models.Event, error) {
	return s.catalog.Get(ctx, eventID)
}

// EventsOf walks the catalog and buckets events the user organizes or
// has joined.
func (s *membershipService) EventsOf(ctx context.Context, userID int64) (*UserEvents, error) {
	events, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &UserEvents{}
	for _, event := range events {
		if event.OrganizerID == userID {
			out.Organized = append(out.Organized, event)
			continue
		}
		participants, err := s.roster.List(ctx, event.ID)
		if err != nil {
			log.Printf("[Service] ⚠️ skipping roster of %s: %v", event.ID, err)
			continue
		}
		for _, p := range participants {
			if p.User.ID == userID {
				out.Joined = append(out.Joined, event)
				break
			}
		}
	}
	return out, nil
}

// upgradeEvent applies a late chain confirmation to an event and its
// organizer entry. Runs from the guard's callback after the original
// request context is gone.
func (s *membershipService) upgradeEvent(eventID, organizerWallet, txRef string) {
	ctx := context.Background()
	record := models.ChainRecord{TxRef: txRef, OnChain: true}
	if err := s.catalog.SetChainRecord(ctx, eventID, record); err != nil {
		log.Printf("[Service] ⚠️ late chain upgrade for event %s failed: %v", eventID, err)
	}
	if err := s.roster.SetChainRecord(ctx, eventID, organizerWallet, record); err != nil {
		log.Printf("[Service] ⚠️ late chain upgrade for organizer of %s failed: %v", eventID, err)
	}
}

func (s *membershipService) upgradeParticipant(eventID, wallet, txRef string) {
	ctx := context.Background()
	record := models.ChainRecord{TxRef: txRef, OnChain: true}
	if err := s.roster.SetChainRecord(ctx, eventID, wallet, record); err != nil {
		log.Printf("[Service] ⚠️ late chain upgrade for %s/%s failed: %v", eventID, wallet, err)
	}
}

func (s *membershipService) recordEventChain(ctx context.Context, eventID, organizerWallet string, record models.ChainRecord) {
	if err := s.catalog.SetChainRecord(ctx, eventID, record); err != nil {
		log.Printf("[Service] ⚠️ failed to record chain outcome for event %s: %v", eventID, err)
	}
	if err := s.roster.SetChainRecord(ctx, eventID, organizerWallet, record); err != nil {
		log.Printf("[Service] ⚠️ failed to record chain outcome for organizer of %s: %v", eventID, err)
	}
}
