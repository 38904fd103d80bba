package chain

import (
	"context"
	"errors"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
)

var (
	// ErrTimeout marks a chain call that ran out of time. Callers treat
	// it as a warning, never as a reason to undo local state.
	ErrTimeout = errors.New("chain call timed out")
	// ErrUnavailable marks an adapter that cannot reach the chain at
	// all, including the deliberately disabled one.
	ErrUnavailable = errors.New("chain is not available")
)

// Adapter submits attestations to the chain and returns a transaction
// reference. Implementations are opaque to the engine: the engine never
// builds transactions or talks RPC itself.
type Adapter interface {
	CreateEvent(ctx context.Context, event *models.Event) (string, error)
	JoinEvent(ctx context.Context, eventID, wallet string) (string, error)
	Confirm(ctx context.Context, txRef string) error
}

type disabledAdapter struct{}

// NewDisabled returns an adapter for running without chain access.
// Every call reports ErrUnavailable, so records stay local-only and the
// rest of the system works normally.
func NewDisabled() Adapter { return disabledAdapter{} }

func (disabledAdapter) CreateEvent(ctx context.Context, event *models.Event) (string, error) {
	return "", ErrUnavailable
}

func (disabledAdapter) JoinEvent(ctx context.Context, eventID, wallet string) (string, error) {
	return "", ErrUnavailable
}

func (disabledAdapter) Confirm(ctx context.Context, txRef string) error {
	return ErrUnavailable
}
