package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Collection names persisted by the fleet console.
const (
	Buses           = "buses"
	Drivers         = "drivers"
	Routes          = "routes"
	ServiceRequests = "serviceRequests"
	BusServices     = "busServices"
	BusExpenses     = "busExpenses"
	FuelFillRecords = "fuelFillRecords"
	FuelTheftRecord = "fuelTheftRecords"
	Alerts          = "alerts"
)

// Adapter persists named collections wholesale. Save overwrites the entire
// collection; there are no partial writes and no cross-collection
// transactions.
type Adapter interface {
	// Load returns the stored records, or a nil slice when the collection
	// has never been saved.
	Load(ctx context.Context, collection string) ([]json.RawMessage, error)
	Save(ctx context.Context, collection string, records []json.RawMessage) error
}

// CorruptStateError reports that a stored payload could not be parsed as a
// record array. Callers treat the collection as empty and log a warning;
// the next save repairs the stored copy.
type CorruptStateError struct {
	Collection string
	Err        error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt stored state for %q: %v", e.Collection, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

func decodeArray(collection string, payload []byte) ([]json.RawMessage, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, &CorruptStateError{Collection: collection, Err: err}
	}
	return records, nil
}

func encodeArray(records []json.RawMessage) []byte {
	if records == nil {
		records = []json.RawMessage{}
	}
	payload, _ := json.Marshal(records)
	return payload
}

// Memory is a map-backed Adapter used by tests and when no durable backend
// is configured.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]byte)}
}

func (m *Memory) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.RLock()
	payload, ok := m.collections[collection]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeArray(collection, payload)
}

func (m *Memory) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	m.mu.Lock()
	m.collections[collection] = encodeArray(records)
	m.mu.Unlock()
	return nil
}

// Corrupt seeds an unparseable payload. Test hook for recovery paths.
func (m *Memory) Corrupt(collection string, payload []byte) {
	m.mu.Lock()
	m.collections[collection] = payload
	m.mu.Unlock()
}
