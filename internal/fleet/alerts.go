package fleet

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"fleetdesk/internal/store"
)

// AlertLog keeps the most recent operational alerts in a ring, persisting
// them best-effort under the alerts collection. A failed save is logged and
// repaired by the next one.
type AlertLog struct {
	mu      sync.Mutex
	adapter store.Adapter
	entries []Alert
	max     int
}

func NewAlertLog(adapter store.Adapter, max int) *AlertLog {
	if max <= 0 {
		max = 200
	}
	return &AlertLog{adapter: adapter, max: max}
}

// Load restores previously persisted alerts. Corrupt payloads start the log
// empty.
func (l *AlertLog) Load(ctx context.Context) error {
	raw, err := l.adapter.Load(ctx, store.Alerts)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
	for _, msg := range raw {
		var a Alert
		if err := json.Unmarshal(msg, &a); err != nil {
			return &store.CorruptStateError{Collection: store.Alerts, Err: err}
		}
		l.entries = append(l.entries, a)
	}
	return nil
}

// Publish appends an alert, trimming to the ring size.
func (l *AlertLog) Publish(ctx context.Context, alert Alert) {
	l.mu.Lock()
	l.entries = append(l.entries, alert)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	raw := make([]json.RawMessage, 0, len(l.entries))
	for _, a := range l.entries {
		msg, _ := json.Marshal(a)
		raw = append(raw, msg)
	}
	l.mu.Unlock()
	if err := l.adapter.Save(ctx, store.Alerts, raw); err != nil {
		log.Printf("warning: alert log save failed: %v", err)
	}
}

// Recent returns the logged alerts, newest last.
func (l *AlertLog) Recent() []Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Alert, len(l.entries))
	copy(out, l.entries)
	return out
}
