// Package feed delivers row-level change events to subscribers. It is
// the push half of the sync model: writers publish the raw row after a
// successful write, and interested sessions react without polling.
package feed

import (
	"encoding/json"
	"fmt"
)

// Event kinds. KindAll subscribes to every kind of change on a table.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindAll    Kind = "*"
)

// Event carries the raw column values of a changed row, not the
// enriched/joined form. Consumers that need display-ready data
// re-fetch the row by id.
type Event struct {
	Table string          `json:"table"`
	Kind  Kind            `json:"kind"`
	Row   json.RawMessage `json:"row"`
}

// Filter is a single equality predicate on a row column.
type Filter struct {
	Column string
	Equals string
}

// Matches reports whether the event's row satisfies the filter. A nil
// filter matches everything; a row missing the column matches nothing.
func (f *Filter) Matches(e Event) bool {
	if f == nil {
		return true
	}
	var row map[string]any
	if err := json.Unmarshal(e.Row, &row); err != nil {
		return false
	}
	val, ok := row[f.Column]
	if !ok {
		return false
	}
	return fmt.Sprint(val) == f.Equals
}

type Handler func(Event)

// Feed is a subscribable stream of change events. Subscribe returns a
// cancellation func that is safe to call multiple times; after it
// returns, the handler receives no further events.
type Feed interface {
	Subscribe(table string, filter *Filter, kind Kind, h Handler) (cancel func(), err error)
}

// Publisher is the write side of a feed.
type Publisher interface {
	Publish(table string, kind Kind, row any) error
}
