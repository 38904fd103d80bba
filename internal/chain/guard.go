package chain

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
)

// Failure reasons embedded in local-only transaction references.
const (
	ReasonTimeout  = "timeout"
	ReasonError    = "chain-error"
	ReasonDisabled = "disabled"
)

// Submission is the outcome of a guarded chain call: either a real
// transaction reference with OnChain true, or a synthetic local-only
// marker with OnChain false.
type Submission struct {
	TxRef   string
	OnChain bool
}

// Chain returns the submission as a record to attach to an event or
// participant.
func (s Submission) Chain() models.ChainRecord {
	return models.ChainRecord{TxRef: s.TxRef, OnChain: s.OnChain}
}

// Guard runs adapter calls under a deadline so local state never waits
// on the chain. A call that fails or overruns the deadline degrades to
// a local-only submission; if an overrunning call eventually succeeds,
// the reference is handed to the caller's onLate callback so the record
// can be upgraded after the fact. The callback only ever upgrades chain
// fields, it never re-runs the local transition that preceded the call.
type Guard struct {
	adapter Adapter
	timeout time.Duration
}

func NewGuard(adapter Adapter, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Guard{adapter: adapter, timeout: timeout}
}

func (g *Guard) CreateEvent(ctx context.Context, event *models.Event, onLate func(txRef string)) Submission {
	return g.guard(ctx, "createEvent "+event.ID, func(ctx context.Context) (string, error) {
		return g.adapter.CreateEvent(ctx, event)
	}, onLate)
}

func (g *Guard) JoinEvent(ctx context.Context, eventID, wallet string, onLate func(txRef string)) Submission {
	return g.guard(ctx, "joinEvent "+eventID, func(ctx context.Context) (string, error) {
		return g.adapter.JoinEvent(ctx, eventID, wallet)
	}, onLate)
}

func (g *Guard) guard(ctx context.Context, op string, call func(context.Context) (string, error), onLate func(string)) Submission {
	type result struct {
		ref string
		err error
	}
	done := make(chan result, 1)
	go func() {
		ref, err := call(ctx)
		done <- result{ref, err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			reason := reasonFor(res.err)
			if reason != ReasonDisabled {
				log.Printf("[Chain] ⚠️ %s failed, keeping local record: %v", op, res.err)
			}
			return Submission{TxRef: models.LocalRef(reason)}
		}
		return Submission{TxRef: res.ref, OnChain: true}
	case <-timer.C:
		log.Printf("[Chain] ⚠️ %s exceeded %s, keeping local record", op, g.timeout)
		go func() {
			res := <-done
			if res.err != nil || onLate == nil {
				return
			}
			log.Printf("[Chain] late confirmation for %s: %s", op, res.ref)
			onLate(res.ref)
		}()
		return Submission{TxRef: models.LocalRef(ReasonTimeout)}
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrUnavailable):
		return ReasonDisabled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonError
	}
}
