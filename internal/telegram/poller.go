package telegram

import (
	"context"
	"log"
	"time"
)

// Handler consumes updates delivered by the poller.
type Handler interface {
	HandleUpdate(ctx context.Context, update Update)
}

// Poller drives the long-poll loop against getUpdates and hands each
// update to the handler on its own goroutine, so a slow command (a
// chain call can take seconds) never stalls other chats.
type Poller struct {
	client      *Client
	handler     Handler
	offset      int64
	pollTimeout time.Duration
	retryDelay  time.Duration
}

func NewPoller(client *Client, handler Handler) *Poller {
	return &Poller{
		client:      client,
		handler:     handler,
		pollTimeout: 30 * time.Second,
		retryDelay:  3 * time.Second,
	}
}

// Run polls until the context is cancelled. Poll failures are logged
// and retried after a short delay.
func (p *Poller) Run(ctx context.Context) error {
	log.Println("[Telegram] 🤖 Update poller started")
	for {
		updates, err := p.client.GetUpdates(ctx, p.offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[Telegram] Update poller stopped")
				return nil
			}
			log.Printf("[Telegram] ⚠️ getUpdates failed: %v", err)
			select {
			case <-ctx.Done():
				log.Println("[Telegram] Update poller stopped")
				return nil
			case <-time.After(p.retryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			go p.dispatch(ctx, update)
		}

		select {
		case <-ctx.Done():
			log.Println("[Telegram] Update poller stopped")
			return nil
		default:
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Telegram] ⚠️ Handler panicked on update %d: %v", update.UpdateID, r)
		}
	}()
	p.handler.HandleUpdate(ctx, update)
}
