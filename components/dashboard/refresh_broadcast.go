package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"sync"
	"time"
)

// RefreshEvent tells subscribed pages to reload a dashboard.
type RefreshEvent struct {
	Code string    `json:"code"`
	At   time.Time `json:"at"`
}

// RefreshHook receives refresh events.
type RefreshHook interface {
	DashboardRefreshed(ctx context.Context, event RefreshEvent) error
}

// BroadcastHook fans out refresh events to in-process subscribers.
// Slow subscribers miss events rather than block the publisher.
type BroadcastHook struct {
	mu   sync.RWMutex
	subs map[int]chan RefreshEvent
	next int
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]chan RefreshEvent)}
}

// DashboardRefreshed satisfies RefreshHook.
func (h *BroadcastHook) DashboardRefreshed(_ context.Context, event RefreshEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of refresh events and a cancel func.
func (h *BroadcastHook) Subscribe() (<-chan RefreshEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan RefreshEvent, 8)
	h.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Subscribers reports the number of open subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// StreamSSE writes refresh events to w as Server-Sent Events until ctx is
// done or a write fails. A comment line is sent every heartbeat so dropped
// clients are noticed.
func (h *BroadcastHook) StreamSSE(ctx context.Context, w *bufio.Writer, heartbeat time.Duration) error {
	events, cancel := h.Subscribe()
	defer cancel()

	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	if _, err := w.WriteString("retry: 5000\n\n"); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return err
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeSSEEvent(w, "refresh", event); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}

func writeSSEEvent(w *bufio.Writer, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("event: " + name + "\ndata: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.WriteString("\n\n")
	return err
}
