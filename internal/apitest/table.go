package apitest

import (
	"sort"

	"github.com/g1appdev/hubbits/internal/client/models"
)

type record[T any] interface {
	models.Record
	WithRecordID(id int64) T
}

// table is an in-memory collection with server-assigned ids. Callers hold
// Server.mu.
type table[T record[T]] struct {
	next int64
	rows map[int64]T
}

func newTable[T record[T]]() *table[T] {
	return &table[T]{next: 1, rows: make(map[int64]T)}
}

func (t *table[T]) list() []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

func (t *table[T]) get(id int64) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) insert(v T) T {
	v = v.WithRecordID(t.next)
	t.rows[t.next] = v
	t.next++
	return v
}

func (t *table[T]) replace(id int64, v T) (T, bool) {
	if _, ok := t.rows[id]; !ok {
		var zero T
		return zero, false
	}
	v = v.WithRecordID(id)
	t.rows[id] = v
	return v, true
}

func (t *table[T]) remove(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}
