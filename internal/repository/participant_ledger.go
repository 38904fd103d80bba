package repository

import (
	"context"
	"errors"
	"time"

	"github.com/solmeet-dev/solmeet-backend/internal/keylock"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/store"
)

var ErrParticipantNotFound = errors.New("participant not found")

// ParticipantLedger owns each event's roster: enrolled participants in
// join order plus the notification subscriber set. Adding is idempotent;
// capacity is the caller's concern, not the ledger's.
type ParticipantLedger interface {
	Add(ctx context.Context, eventID string, p *models.Participant) (*models.Participant, bool, error)
	Get(ctx context.Context, eventID, wallet string) (*models.Participant, error)
	List(ctx context.Context, eventID string) ([]*models.Participant, error)
	Count(ctx context.Context, eventID string) (int, error)
	IsParticipant(ctx context.Context, eventID, wallet string) (bool, error)
	Roster(ctx context.Context, eventID string) (*models.Roster, error)
	Subscribe(ctx context.Context, eventID string, userID int64) error
	Unsubscribe(ctx context.Context, eventID string, userID int64) error
	Subscribers(ctx context.Context, eventID string) ([]int64, error)
	SetChainRecord(ctx context.Context, eventID, wallet string, chain models.ChainRecord) error
}

type participantLedger struct {
	store store.RecordStore
	locks *keylock.Map
	now   func() time.Time
}

func NewParticipantLedger(st store.RecordStore) ParticipantLedger {
	return &participantLedger{store: st, locks: keylock.New(), now: time.Now}
}

// Add enrolls a wallet. If it is already on the roster the existing
// participant is returned unchanged and added is false; the roster never
// holds duplicates no matter how often Add runs.
func (l *participantLedger) Add(ctx context.Context, eventID string, p *models.Participant) (*models.Participant, bool, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return nil, false, err
	}
	lock := l.locks.Get(eventID)
	lock.Lock()
	defer lock.Unlock()

	roster, err := l.load(ctx, eventID)
	if err != nil {
		return nil, false, err
	}
	if existing := roster.Find(p.Wallet); existing != nil {
		return existing, false, nil
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = l.now().UTC()
	}
	roster.Participants = append(roster.Participants, p)
	roster.UpdatedAt = l.now().UTC()
	if err := l.store.Save(ctx, eventID, roster); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (l *participantLedger) Get(ctx context.Context, eventID, wallet string) (*models.Participant, error) {
	roster, err := l.Roster(ctx, eventID)
	if err != nil {
		return nil, err
	}
	p := roster.Find(wallet)
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

func (l *participantLedger) List(ctx context.Context, eventID string) ([]*models.Participant, error) {
	roster, err := l.Roster(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return roster.Participants, nil
}

func (l *participantLedger) Count(ctx context.Context, eventID string) (int, error) {
	roster, err := l.Roster(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return roster.Count(), nil
}

func (l *participantLedger) IsParticipant(ctx context.Context, eventID, wallet string) (bool, error) {
	roster, err := l.Roster(ctx, eventID)
	if err != nil {
		return false, err
	}
	return roster.Find(wallet) != nil, nil
}

// Roster returns the event's full membership record; a never-written
// event reads as an empty roster.
func (l *participantLedger) Roster(ctx context.Context, eventID string) (*models.Roster, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return nil, err
	}
	return l.load(ctx, eventID)
}

func (l *participantLedger) Subscribe(ctx context.Context, eventID string, userID int64) error {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return err
	}
	lock := l.locks.Get(eventID)
	lock.Lock()
	defer lock.Unlock()

	roster, err := l.load(ctx, eventID)
	if err != nil {
		return err
	}
	if roster.Subscribed(userID) {
		return nil
	}
	roster.Subscribers = append(roster.Subscribers, userID)
	roster.UpdatedAt = l.now().UTC()
	return l.store.Save(ctx, eventID, roster)
}

func (l *participantLedger) Unsubscribe(ctx context.Context, eventID string, userID int64) error {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return err
	}
	lock := l.locks.Get(eventID)
	lock.Lock()
	defer lock.Unlock()

	roster, err := l.load(ctx, eventID)
	if err != nil {
		return err
	}
	kept := roster.Subscribers[:0]
	for _, id := range roster.Subscribers {
		if id != userID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(roster.Subscribers) {
		return nil
	}
	roster.Subscribers = kept
	roster.UpdatedAt = l.now().UTC()
	return l.store.Save(ctx, eventID, roster)
}

func (l *participantLedger) Subscribers(ctx context.Context, eventID string) ([]int64, error) {
	roster, err := l.Roster(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return roster.Subscribers, nil
}

// SetChainRecord records a participant's attestation outcome. Upgrade
// only: once a participant is confirmed on chain a later local-only
// marker is ignored. The participant entry itself is never re-created
// here.
func (l *participantLedger) SetChainRecord(ctx context.Context, eventID, wallet string, chain models.ChainRecord) error {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return err
	}
	lock := l.locks.Get(eventID)
	lock.Lock()
	defer lock.Unlock()

	roster, err := l.load(ctx, eventID)
	if err != nil {
		return err
	}
	p := roster.Find(wallet)
	if p == nil {
		return ErrParticipantNotFound
	}
	if p.Chain.OnChain && !chain.OnChain {
		return nil
	}
	p.Chain = chain
	roster.UpdatedAt = l.now().UTC()
	return l.store.Save(ctx, eventID, roster)
}

func (l *participantLedger) load(ctx context.Context, eventID string) (*models.Roster, error) {
	roster := &models.Roster{}
	if _, err := l.store.Load(ctx, eventID, roster); err != nil {
		return nil, err
	}
	return roster, nil
}
