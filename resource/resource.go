package resource

import (
	"maps"
	"slices"
)

// Resource is an ordered set of messages. A later definition of an id
// replaces the earlier value but keeps its original position.
type Resource struct {
	ids      []string
	messages map[string]Entry
}

func NewResource() *Resource {
	return &Resource{messages: make(map[string]Entry)}
}

// FromMap builds a resource from id/value pairs, ordered by id.
func FromMap(m map[string]string) *Resource {
	r := NewResource()
	for _, id := range slices.Sorted(maps.Keys(m)) {
		r.Add(Entry{ID: id, Value: m[id]})
	}
	return r
}

func (r *Resource) Add(e Entry) {
	if _, ok := r.messages[e.ID]; !ok {
		r.ids = append(r.ids, e.ID)
	}
	r.messages[e.ID] = e
}

// Get returns the value of id.
func (r *Resource) Get(id string) (string, bool) {
	e, ok := r.messages[id]
	return e.Value, ok
}

func (r *Resource) Len() int {
	return len(r.ids)
}

// IDs returns message ids in definition order.
func (r *Resource) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Entries returns the messages in definition order.
func (r *Resource) Entries() []Entry {
	out := make([]Entry, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.messages[id])
	}
	return out
}

// Map returns a copy of the id/value pairs.
func (r *Resource) Map() map[string]string {
	out := make(map[string]string, len(r.messages))
	for id, e := range r.messages {
		out[id] = e.Value
	}
	return out
}
