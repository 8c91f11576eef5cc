// Package repo provides typed write-through wrappers around the durable
// store adapter. A Collection caches its records in memory and overwrites
// the whole stored collection on every mutation, so the durable copy is
// never more than one operation behind.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fleetdesk/internal/store"
)

// Record is implemented by every persisted entity type.
type Record[T any] interface {
	RecordID() string
	WithRecordID(id string) T
}

// NotFoundError reports an update or remove against an unknown record id.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no record with id %q", e.Collection, e.ID)
}

// PersistenceWriteError reports a failed durable write. The in-memory copy
// is kept; the next write-through save covers the lost one.
type PersistenceWriteError struct {
	Collection string
	Err        error
}

func (e *PersistenceWriteError) Error() string {
	return fmt.Sprintf("persist %q failed: %v", e.Collection, e.Err)
}

func (e *PersistenceWriteError) Unwrap() error { return e.Err }

// idCounter disambiguates ids minted within the same nanosecond.
var idCounter atomic.Int64

// NewID returns a creation-time unique token, monotonic within a process.
func NewID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), idCounter.Add(1))
}

// Collection is a typed repository over one named collection. It is not
// safe for concurrent use; the fleet controller serializes access.
type Collection[T Record[T]] struct {
	name    string
	adapter store.Adapter
	records []T
	loaded  bool
}

func NewCollection[T Record[T]](name string, adapter store.Adapter) *Collection[T] {
	return &Collection[T]{name: name, adapter: adapter}
}

func (c *Collection[T]) Name() string { return c.name }

// Load reads the stored collection into the cache. A corrupt payload is
// treated as an empty collection and reported so the caller can log it.
func (c *Collection[T]) Load(ctx context.Context) error {
	raw, err := c.adapter.Load(ctx, c.name)
	if err != nil {
		var corrupt *store.CorruptStateError
		if errors.As(err, &corrupt) {
			c.records = nil
			c.loaded = true
			return err
		}
		return err
	}
	records := make([]T, 0, len(raw))
	for _, msg := range raw {
		var rec T
		if err := json.Unmarshal(msg, &rec); err != nil {
			c.records = nil
			c.loaded = true
			return &store.CorruptStateError{Collection: c.name, Err: err}
		}
		records = append(records, rec)
	}
	c.records = records
	c.loaded = true
	return nil
}

// List returns a copy of the cached records.
func (c *Collection[T]) List() []T {
	out := make([]T, len(c.records))
	copy(out, c.records)
	return out
}

// Find returns the record with the given id.
func (c *Collection[T]) Find(id string) (T, bool) {
	for _, rec := range c.records {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Add appends a record, assigning a creation-time id when the caller did
// not supply one, and writes the collection through to the store.
func (c *Collection[T]) Add(ctx context.Context, rec T) (T, error) {
	if rec.RecordID() == "" {
		rec = rec.WithRecordID(NewID())
	}
	c.records = append(c.records, rec)
	return rec, c.save(ctx)
}

// Update replaces the record with a matching id.
func (c *Collection[T]) Update(ctx context.Context, rec T) error {
	for i, existing := range c.records {
		if existing.RecordID() == rec.RecordID() {
			c.records[i] = rec
			return c.save(ctx)
		}
	}
	return &NotFoundError{Collection: c.name, ID: rec.RecordID()}
}

// Remove deletes the record with the given id.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	for i, existing := range c.records {
		if existing.RecordID() == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return c.save(ctx)
		}
	}
	return &NotFoundError{Collection: c.name, ID: id}
}

// Replace swaps the entire record set in one durable write. Used by the
// telemetry loop to bound writes to one per tick.
func (c *Collection[T]) Replace(ctx context.Context, records []T) error {
	c.records = make([]T, len(records))
	copy(c.records, records)
	return c.save(ctx)
}

func (c *Collection[T]) save(ctx context.Context) error {
	raw := make([]json.RawMessage, 0, len(c.records))
	for _, rec := range c.records {
		msg, err := json.Marshal(rec)
		if err != nil {
			return &PersistenceWriteError{Collection: c.name, Err: err}
		}
		raw = append(raw, msg)
	}
	if err := c.adapter.Save(ctx, c.name, raw); err != nil {
		return &PersistenceWriteError{Collection: c.name, Err: err}
	}
	return nil
}
