package repository

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solmeet-dev/solmeet-backend/internal/keylock"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/store"
)

var (
	ErrDuplicateEventID = errors.New("event code already exists")
	ErrEventNotFound    = errors.New("event not found")
)

// EventCatalog owns the durable event records, one per event code.
type EventCatalog interface {
	Create(ctx context.Context, event *models.Event) error
	Get(ctx context.Context, eventID string) (*models.Event, error)
	OrganizerOf(ctx context.Context, eventID string) (int64, error)
	SetChainRecord(ctx context.Context, eventID string, chain models.ChainRecord) error
	List(ctx context.Context) ([]*models.Event, error)
}

type eventCatalog struct {
	store store.RecordStore
	locks *keylock.Map
	now   func() time.Time
}

func NewEventCatalog(st store.RecordStore) EventCatalog {
	return &eventCatalog{store: st, locks: keylock.New(), now: time.Now}
}

// Create persists a new event. A missing ID is generated: the first
// eight hex characters of a v4 UUID, uppercased, collision-checked.
// The record is written to disk before it becomes visible anywhere.
func (c *eventCatalog) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		id, err := c.generateID(ctx)
		if err != nil {
			return err
		}
		event.ID = id
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = c.now().UTC()
	}

	lock := c.locks.Get(event.ID)
	lock.Lock()
	defer lock.Unlock()

	var existing models.Event
	found, err := c.store.Load(ctx, event.ID, &existing)
	if err != nil {
		return err
	}
	if found {
		return ErrDuplicateEventID
	}
	return c.store.Save(ctx, event.ID, event)
}

func (c *eventCatalog) Get(ctx context.Context, eventID string) (*models.Event, error) {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return nil, ErrEventNotFound
	}
	var event models.Event
	found, err := c.store.Load(ctx, eventID, &event)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrEventNotFound
	}
	return &event, nil
}

func (c *eventCatalog) OrganizerOf(ctx context.Context, eventID string) (int64, error) {
	event, err := c.Get(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return event.OrganizerID, nil
}

// SetChainRecord updates an event's attestation outcome. Upgrade only:
// a record already confirmed on chain is never overwritten with a
// local-only marker.
func (c *eventCatalog) SetChainRecord(ctx context.Context, eventID string, chain models.ChainRecord) error {
	if err := models.NormalizeEventID(&eventID); err != nil {
		return ErrEventNotFound
	}
	lock := c.locks.Get(eventID)
	lock.Lock()
	defer lock.Unlock()

	var event models.Event
	found, err := c.store.Load(ctx, eventID, &event)
	if err != nil {
		return err
	}
	if !found {
		return ErrEventNotFound
	}
	if event.Chain.OnChain && !chain.OnChain {
		return nil
	}
	event.Chain = chain
	return c.store.Save(ctx, eventID, &event)
}

func (c *eventCatalog) List(ctx context.Context) ([]*models.Event, error) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]*models.Event, 0, len(keys))
	for _, key := range keys {
		var event models.Event
		found, err := c.store.Load(ctx, key, &event)
		if err != nil {
			log.Printf("[Store] ⚠️ skipping unreadable event record %s: %v", key, err)
			continue
		}
		if found {
			events = append(events, &event)
		}
	}
	return events, nil
}

func (c *eventCatalog) generateID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		id := strings.ToUpper(uuid.NewString()[:models.GeneratedIDLength])
		var existing models.Event
		found, err := c.store.Load(ctx, id, &existing)
		if err != nil {
			return "", err
		}
		if !found {
			return id, nil
		}
	}
	return "", errors.New("could not generate a unique event code")
}
