package feed

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Bus is the in-process feed for single-node deployments. Events are
// dispatched synchronously on the publisher's goroutine, so each
// mutation step runs to completion before the next begins.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*busSub
	nextID int
}

type busSub struct {
	table   string
	filter  *Filter
	kind    Kind
	handler Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*busSub)}
}

func (b *Bus) Subscribe(table string, filter *Filter, kind Kind, h Handler) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &busSub{table: table, filter: filter, kind: kind, handler: h}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
	return cancel, nil
}

func (b *Bus) Publish(table string, kind Kind, row any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshaling feed row: %w", err)
	}
	event := Event{Table: table, Kind: kind, Row: data}

	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.table != table {
			continue
		}
		if sub.kind != KindAll && sub.kind != kind {
			continue
		}
		if !sub.filter.Matches(event) {
			continue
		}
		matched = append(matched, sub.handler)
	}
	b.mu.RUnlock()

	// Invoke outside the lock so handlers may subscribe or unsubscribe.
	for _, h := range matched {
		h(event)
	}
	return nil
}
