package listsync

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/logging"
	"github.com/google/uuid"
)

var (
	// ErrProvisionalKey is returned when a not yet confirmed entry is
	// addressed for update or delete.
	ErrProvisionalKey = errors.New("entry is not confirmed by the server yet")
	ErrNotFound       = errors.New("entry not found")
	ErrClosed         = errors.New("list closed")
	// ErrBusy is returned when an entry already has a request in flight.
	ErrBusy = errors.New("entry has a request in flight")
)

// Identified is a record that can be re-keyed with a server identifier.
type Identified[T any] interface {
	models.Record
	WithRecordID(id int64) T
}

// Remote is the server side of a list.
type Remote[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, draft T) (T, error)
	Update(ctx context.Context, id int64, value T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// EntryState describes where an entry is in its round trip.
type EntryState int

const (
	Confirmed EntryState = iota
	PendingCreate
	PendingUpdate
	PendingDelete
	Failed
)

func (s EntryState) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case PendingCreate:
		return "creating"
	case PendingUpdate:
		return "updating"
	case PendingDelete:
		return "deleting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one visible row. Provisional entries have ID 0 and a UUID Key;
// confirmed entries are keyed by their decimal ID.
type Entry[T any] struct {
	Key   string
	ID    int64
	Value T
	State EntryState
	Err   error
}

// Provisional reports whether the server has not assigned an ID yet.
func (e Entry[T]) Provisional() bool { return e.ID == 0 }

type provisional[T any] struct {
	key   string
	draft T
	state EntryState
	err   error
}

type rowMeta struct {
	state EntryState
	err   error
}

type opKind int

const (
	opUpsert opKind = iota
	opRemove
)

// mutation is a confirmed change kept until no load that started before it
// is still running.
type mutation[T any] struct {
	seq   uint64
	kind  opKind
	id    int64
	value T
}

// List mirrors a server collection with optimistic creates and
// per-identifier patching. It is safe for concurrent use.
type List[T Identified[T]] struct {
	remote   Remote[T]
	validate func(T) error
	log      logging.Logger

	mu        sync.Mutex
	order     []int64
	rows      map[int64]T
	meta      map[int64]rowMeta
	pending   []*provisional[T]
	journal   []mutation[T]
	seq       uint64
	loadGen   uint64
	applied   uint64
	inflight  map[uint64]uint64
	loaded    bool
	closed    bool
	lastErr   error
	subs      map[int]func()
	nextSubID int
}

type Option[T Identified[T]] func(*List[T])

// WithValidator checks drafts and values before anything is sent.
func WithValidator[T Identified[T]](fn func(T) error) Option[T] {
	return func(l *List[T]) { l.validate = fn }
}

func WithLogger[T Identified[T]](lg logging.Logger) Option[T] {
	return func(l *List[T]) { l.log = lg }
}

func New[T Identified[T]](remote Remote[T], opts ...Option[T]) *List[T] {
	l := &List[T]{
		remote:   remote,
		log:      logging.Discard(),
		rows:     make(map[int64]T),
		meta:     make(map[int64]rowMeta),
		inflight: make(map[uint64]uint64),
		subs:     make(map[int]func()),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load fetches the collection and replaces the confirmed rows with it.
// Mutations confirmed after the load started are replayed on top, and a
// response older than one already applied is dropped. On failure the
// previous rows stay and the error is also kept as LastError. A dropped
// response still reports its own error.
func (l *List[T]) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.loadGen++
	gen := l.loadGen
	l.inflight[gen] = l.seq
	l.mu.Unlock()

	items, err := l.remote.List(ctx)

	l.mu.Lock()
	startSeq := l.inflight[gen]
	delete(l.inflight, gen)
	if l.closed {
		l.mu.Unlock()
		return closedErr(err)
	}
	if gen < l.applied {
		l.trimJournalLocked()
		l.mu.Unlock()
		l.log.Debug(ctx, "discarding stale load", "generation", gen)
		return err
	}
	if err != nil {
		l.lastErr = err
		l.trimJournalLocked()
		l.mu.Unlock()
		l.notify()
		return err
	}

	l.order = l.order[:0]
	l.rows = make(map[int64]T, len(items))
	for _, it := range items {
		l.upsertLocked(it)
	}
	for _, m := range l.journal {
		if m.seq <= startSeq {
			continue
		}
		switch m.kind {
		case opUpsert:
			l.upsertLocked(m.value)
		case opRemove:
			l.removeLocked(m.id)
		}
	}
	for id := range l.meta {
		if _, ok := l.rows[id]; !ok && l.meta[id].state == Confirmed {
			delete(l.meta, id)
		}
	}
	l.applied = gen
	l.loaded = true
	l.lastErr = nil
	l.trimJournalLocked()
	l.mu.Unlock()

	l.notify()
	return nil
}

// Create shows draft immediately under a provisional key and submits it.
// On success the entry is replaced by the server's record; on failure it
// stays visible as Failed until Discard or Retry.
func (l *List[T]) Create(ctx context.Context, draft T) (T, error) {
	var zero T
	if err := l.check(draft); err != nil {
		return zero, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return zero, ErrClosed
	}
	p := &provisional[T]{key: uuid.NewString(), draft: draft, state: PendingCreate}
	l.pending = append(l.pending, p)
	l.mu.Unlock()
	l.notify()

	return l.submitCreate(ctx, p)
}

// Retry resubmits a failed create.
func (l *List[T]) Retry(ctx context.Context, key string) (T, error) {
	var zero T

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return zero, ErrClosed
	}
	p := l.findPendingLocked(key)
	if p == nil {
		l.mu.Unlock()
		return zero, ErrNotFound
	}
	if p.state != Failed {
		l.mu.Unlock()
		return zero, ErrBusy
	}
	p.state = PendingCreate
	p.err = nil
	l.mu.Unlock()
	l.notify()

	return l.submitCreate(ctx, p)
}

func (l *List[T]) submitCreate(ctx context.Context, p *provisional[T]) (T, error) {
	var zero T

	created, err := l.remote.Create(ctx, p.draft)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return zero, closedErr(err)
	}
	if err != nil {
		p.state = Failed
		p.err = err
		l.mu.Unlock()
		l.notify()
		return zero, err
	}
	l.dropPendingLocked(p.key)
	l.recordLocked(mutation[T]{kind: opUpsert, id: created.RecordID(), value: created})
	l.upsertLocked(created)
	l.mu.Unlock()

	l.notify()
	return created, nil
}

// Discard removes a failed provisional entry.
func (l *List[T]) Discard(key string) error {
	l.mu.Lock()
	p := l.findPendingLocked(key)
	if p == nil {
		l.mu.Unlock()
		return ErrNotFound
	}
	if p.state != Failed {
		l.mu.Unlock()
		return ErrBusy
	}
	l.dropPendingLocked(key)
	l.mu.Unlock()

	l.notify()
	return nil
}

// Update replaces the confirmed row id with value. The old value stays
// visible until the server answers; it is replaced by the server's record
// on success and kept, with the error attached, on failure.
func (l *List[T]) Update(ctx context.Context, id int64, value T) (T, error) {
	var zero T
	value = value.WithRecordID(id)
	if err := l.check(value); err != nil {
		return zero, err
	}

	if err := l.begin(id, PendingUpdate); err != nil {
		return zero, err
	}

	updated, err := l.remote.Update(ctx, id, value)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return zero, closedErr(err)
	}
	if err != nil {
		l.meta[id] = rowMeta{state: Confirmed, err: err}
		l.mu.Unlock()
		l.notify()
		return zero, err
	}
	if updated.RecordID() == 0 {
		updated = updated.WithRecordID(id)
	}
	delete(l.meta, id)
	l.recordLocked(mutation[T]{kind: opUpsert, id: id, value: updated})
	l.upsertLocked(updated)
	l.mu.Unlock()

	l.notify()
	return updated, nil
}

// Delete removes the confirmed row id once the server agrees. A failure
// leaves the collection unchanged.
func (l *List[T]) Delete(ctx context.Context, id int64) error {
	if err := l.begin(id, PendingDelete); err != nil {
		return err
	}

	err := l.remote.Delete(ctx, id)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return closedErr(err)
	}
	if err != nil {
		l.meta[id] = rowMeta{state: Confirmed, err: err}
		l.mu.Unlock()
		l.notify()
		return err
	}
	delete(l.meta, id)
	l.recordLocked(mutation[T]{kind: opRemove, id: id})
	l.removeLocked(id)
	l.mu.Unlock()

	l.notify()
	return nil
}

// closedErr prefers the remote's failure over ErrClosed when a list is
// closed under a request.
func closedErr(err error) error {
	if err != nil {
		return err
	}
	return ErrClosed
}

func (l *List[T]) begin(id int64, state EntryState) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if _, ok := l.rows[id]; !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	if m, ok := l.meta[id]; ok && m.state != Confirmed {
		l.mu.Unlock()
		return ErrBusy
	}
	l.meta[id] = rowMeta{state: state}
	l.mu.Unlock()
	l.notify()
	return nil
}

func (l *List[T]) check(v T) error {
	if l.validate == nil {
		return nil
	}
	return l.validate(v)
}

// ResolveKey maps a displayed key to a confirmed ID.
func (l *List[T]) ResolveKey(key string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findPendingLocked(key) != nil {
		return 0, ErrProvisionalKey
	}
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotFound
	}
	if _, ok := l.rows[id]; !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

// Entries returns confirmed rows in server order followed by provisional
// ones in creation order.
func (l *List[T]) Entries() []Entry[T] {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry[T], 0, len(l.order)+len(l.pending))
	for _, id := range l.order {
		e := Entry[T]{Key: strconv.FormatInt(id, 10), ID: id, Value: l.rows[id], State: Confirmed}
		if m, ok := l.meta[id]; ok {
			e.State, e.Err = m.state, m.err
		}
		out = append(out, e)
	}
	for _, p := range l.pending {
		out = append(out, Entry[T]{Key: p.key, Value: p.draft, State: p.state, Err: p.err})
	}
	return out
}

// Get returns the confirmed row id.
func (l *List[T]) Get(id int64) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.rows[id]
	return v, ok
}

// Loaded reports whether a load has succeeded at least once.
func (l *List[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// LastError is the error of the most recent failed load, cleared by a
// successful one.
func (l *List[T]) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Close tears the list down. Results that arrive afterwards are dropped.
func (l *List[T]) Close() {
	l.mu.Lock()
	l.closed = true
	l.subs = make(map[int]func())
	l.mu.Unlock()
}

// Subscribe registers fn to run after every visible change.
func (l *List[T]) Subscribe(fn func()) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *List[T]) notify() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (l *List[T]) upsertLocked(v T) {
	id := v.RecordID()
	if _, ok := l.rows[id]; !ok {
		l.order = append(l.order, id)
	}
	l.rows[id] = v
}

func (l *List[T]) removeLocked(id int64) {
	if _, ok := l.rows[id]; !ok {
		return
	}
	delete(l.rows, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *List[T]) recordLocked(m mutation[T]) {
	l.seq++
	m.seq = l.seq
	if len(l.inflight) > 0 {
		l.journal = append(l.journal, m)
	}
}

// trimJournalLocked drops mutations every running load already saw.
func (l *List[T]) trimJournalLocked() {
	if len(l.inflight) == 0 {
		l.journal = nil
		return
	}
	oldest := ^uint64(0)
	for _, start := range l.inflight {
		if start < oldest {
			oldest = start
		}
	}
	i := 0
	for i < len(l.journal) && l.journal[i].seq <= oldest {
		i++
	}
	l.journal = l.journal[i:]
}

func (l *List[T]) findPendingLocked(key string) *provisional[T] {
	for _, p := range l.pending {
		if p.key == key {
			return p
		}
	}
	return nil
}

func (l *List[T]) dropPendingLocked(key string) {
	for i, p := range l.pending {
		if p.key == key {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
	}
}
