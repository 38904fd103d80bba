package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type collectingHandler struct {
	mu      sync.Mutex
	updates []Update
}

func (h *collectingHandler) HandleUpdate(ctx context.Context, update Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

func (h *collectingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates)
}

// pollServer serves one scripted batch of updates, then empty batches.
// It records the offset of every getUpdates call.
func pollServer(t *testing.T, batch []Update, fail int) (*Client, *[]float64) {
	t.Helper()
	var mu sync.Mutex
	offsets := &[]float64{}
	served := false
	failures := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&payload)

		mu.Lock()
		if offset, ok := payload["offset"].(float64); ok {
			*offsets = append(*offsets, offset)
		}
		shouldFail := failures < fail
		if shouldFail {
			failures++
		}
		shouldServe := !served && !shouldFail
		if shouldServe {
			served = true
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if shouldFail {
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "description": "flood wait", "error_code": 429})
			return
		}
		result := []Update{}
		if shouldServe {
			result = batch
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
	}))
	t.Cleanup(server.Close)

	client := NewClient(testToken).WithBaseURL(server.URL)
	return client, offsets
}

func waitForCondition(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPollerDeliversAndAdvancesOffset(t *testing.T) {
	batch := []Update{
		{UpdateID: 500, Message: &Message{Chat: Chat{ID: 1}, Text: "/start"}},
		{UpdateID: 501, Message: &Message{Chat: Chat{ID: 2}, Text: "/help"}},
	}
	client, offsets := pollServer(t, batch, 0)
	handler := &collectingHandler{}

	poller := NewPoller(client, handler)
	poller.pollTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	waitForCondition(t, "both updates delivered", func() bool { return handler.count() == 2 })
	waitForCondition(t, "offset to advance past the batch", func() bool {
		for _, off := range *offsets {
			if off == 502 {
				return true
			}
		}
		return false
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v on cancel, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}

func TestPollerRetriesAfterError(t *testing.T) {
	batch := []Update{{UpdateID: 600, Message: &Message{Chat: Chat{ID: 1}, Text: "/start"}}}
	client, _ := pollServer(t, batch, 1)
	handler := &collectingHandler{}

	poller := NewPoller(client, handler)
	poller.pollTimeout = 50 * time.Millisecond
	poller.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	waitForCondition(t, "update delivered after a failed poll", func() bool { return handler.count() == 1 })
}

type panickingHandler struct {
	collectingHandler
}

func (h *panickingHandler) HandleUpdate(ctx context.Context, update Update) {
	if update.UpdateID == 700 {
		panic("boom")
	}
	h.collectingHandler.HandleUpdate(ctx, update)
}

func TestPollerSurvivesHandlerPanic(t *testing.T) {
	batch := []Update{
		{UpdateID: 700, Message: &Message{Chat: Chat{ID: 1}, Text: "/bad"}},
		{UpdateID: 701, Message: &Message{Chat: Chat{ID: 2}, Text: "/good"}},
	}
	client, _ := pollServer(t, batch, 0)
	handler := &panickingHandler{}

	poller := NewPoller(client, handler)
	poller.pollTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	waitForCondition(t, "surviving update delivered", func() bool { return handler.count() == 1 })
}
