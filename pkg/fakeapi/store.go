package fakeapi

import (
	"sync"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// collection is one resource table. Stored records are never mutated in
// place: updates swap the map so readers can hold on to rows.
type collection struct {
	mu     sync.RWMutex
	rows   []backend.Record
	nextID int
}

func newCollection(rows []backend.Record) *collection {
	c := &collection{rows: rows}
	for _, row := range rows {
		if id, ok := row.Float("id"); ok && int(id) > c.nextID {
			c.nextID = int(id)
		}
	}
	return c
}

func (c *collection) all() []backend.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]backend.Record(nil), c.rows...)
}

func (c *collection) get(id string) (backend.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, row := range c.rows {
		if row.ID() == id {
			return row, true
		}
	}
	return nil, false
}

// insert assigns the next id and stores rec.
func (c *collection) insert(rec backend.Record, decorate func(id int, rec backend.Record)) backend.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	stored := rec.Clone()
	if stored == nil {
		stored = backend.Record{}
	}
	stored["id"] = c.nextID
	if decorate != nil {
		decorate(c.nextID, stored)
	}
	c.rows = append(c.rows, stored)
	return stored
}

// replace swaps the record with id, keeping the keys listed in keep.
func (c *collection) replace(id string, rec backend.Record, keep ...string) (backend.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, row := range c.rows {
		if row.ID() != id {
			continue
		}
		stored := rec.Clone()
		if stored == nil {
			stored = backend.Record{}
		}
		stored["id"] = row["id"]
		for _, key := range keep {
			if v, ok := row[key]; ok {
				stored[key] = v
			}
		}
		c.rows[i] = stored
		return stored, true
	}
	return nil, false
}

func (c *collection) remove(id string) (backend.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, row := range c.rows {
		if row.ID() != id {
			continue
		}
		next := make([]backend.Record, 0, len(c.rows)-1)
		next = append(next, c.rows[:i]...)
		next = append(next, c.rows[i+1:]...)
		c.rows = next
		return row, true
	}
	return nil, false
}

func (c *collection) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}
