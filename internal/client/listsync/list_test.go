package listsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote is an in-memory server. Calls can be held on a gate channel to
// interleave them deterministically.
type fakeRemote struct {
	mu      sync.Mutex
	pets    map[int64]models.Pet
	nextID  int64
	failErr error

	listGate   chan struct{}
	createGate chan struct{}
	listCalls  int
}

func newFakeRemote(pets ...models.Pet) *fakeRemote {
	r := &fakeRemote{pets: map[int64]models.Pet{}, nextID: 100}
	for _, p := range pets {
		r.pets[p.PID] = p
	}
	return r
}

func (r *fakeRemote) wait(gate chan struct{}) {
	if gate != nil {
		<-gate
	}
}

func (r *fakeRemote) List(ctx context.Context) ([]models.Pet, error) {
	r.mu.Lock()
	r.listCalls++
	gate := r.listGate
	snapshot := make([]models.Pet, 0, len(r.pets))
	for id := int64(0); id < 1000; id++ {
		if p, ok := r.pets[id]; ok {
			snapshot = append(snapshot, p)
		}
	}
	err := r.failErr
	r.mu.Unlock()

	r.wait(gate)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *fakeRemote) Create(ctx context.Context, draft models.Pet) (models.Pet, error) {
	r.mu.Lock()
	gate := r.createGate
	err := r.failErr
	r.mu.Unlock()

	r.wait(gate)
	if err != nil {
		return models.Pet{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p := draft.WithRecordID(r.nextID)
	r.pets[p.PID] = p
	return p, nil
}

func (r *fakeRemote) Update(ctx context.Context, id int64, value models.Pet) (models.Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return models.Pet{}, r.failErr
	}
	if _, ok := r.pets[id]; !ok {
		return models.Pet{}, errNotFoundRemote
	}
	r.pets[id] = value
	return value, nil
}

func (r *fakeRemote) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pets[id]; !ok {
		return errNotFoundRemote
	}
	delete(r.pets, id)
	return nil
}

func (r *fakeRemote) setFail(err error) {
	r.mu.Lock()
	r.failErr = err
	r.mu.Unlock()
}

var errNotFoundRemote = errors.New("404")

func names(entries []Entry[models.Pet]) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%s:%s", e.Value.Name, e.State))
	}
	return out
}

func TestLoad_ReplacesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(models.Pet{PID: 1, Name: "Rex"}, models.Pet{PID: 2, Name: "Tom"})
	l := New[models.Pet](remote)

	require.NoError(t, l.Load(ctx))
	first := l.Entries()
	require.NoError(t, l.Load(ctx))

	assert.Equal(t, first, l.Entries())
	assert.Equal(t, []string{"Rex:confirmed", "Tom:confirmed"}, names(first))
	assert.True(t, l.Loaded())
}

func TestLoad_FailureKeepsPreviousCollection(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(models.Pet{PID: 1, Name: "Rex"})
	l := New[models.Pet](remote)
	require.NoError(t, l.Load(ctx))

	boom := errors.New("server down")
	remote.setFail(boom)

	require.ErrorIs(t, l.Load(ctx), boom)
	assert.Equal(t, []string{"Rex:confirmed"}, names(l.Entries()))
	assert.ErrorIs(t, l.LastError(), boom)

	remote.setFail(nil)
	require.NoError(t, l.Load(ctx))
	assert.NoError(t, l.LastError())
}

func TestCreate_ConfirmsWithServerID(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	l := New[models.Pet](remote)

	created, err := l.Create(ctx, models.Pet{Name: "Bella"})
	require.NoError(t, err)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, created.PID, entries[0].ID)
	assert.Equal(t, "101", entries[0].Key)
	assert.Equal(t, Confirmed, entries[0].State)
}

func TestCreate_ShowsProvisionalWhileInFlight(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.createGate = make(chan struct{})
	l := New[models.Pet](remote)

	done := make(chan error)
	go func() {
		_, err := l.Create(ctx, models.Pet{Name: "Bella"})
		done <- err
	}()

	require.Eventually(t, func() bool { return len(l.Entries()) == 1 }, timeout, tick)
	e := l.Entries()[0]
	assert.True(t, e.Provisional())
	assert.Equal(t, PendingCreate, e.State)
	assert.Len(t, e.Key, 36)

	_, err := l.ResolveKey(e.Key)
	assert.ErrorIs(t, err, ErrProvisionalKey)

	close(remote.createGate)
	require.NoError(t, <-done)
	assert.False(t, l.Entries()[0].Provisional())
}

func TestCreate_FailureStaysVisibleUntilDiscardOrRetry(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	l := New[models.Pet](remote)

	boom := errors.New("400")
	remote.setFail(boom)
	_, err := l.Create(ctx, models.Pet{Name: "Bella"})
	require.ErrorIs(t, err, boom)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, Failed, entries[0].State)
	assert.ErrorIs(t, entries[0].Err, boom)
	key := entries[0].Key

	remote.setFail(nil)
	created, err := l.Retry(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bella:confirmed"}, names(l.Entries()))
	assert.NotZero(t, created.PID)

	remote.setFail(boom)
	_, _ = l.Create(ctx, models.Pet{Name: "Ghost"})
	ghost := l.Entries()[1].Key
	require.NoError(t, l.Discard(ghost))
	assert.Equal(t, []string{"Bella:confirmed"}, names(l.Entries()))
	assert.ErrorIs(t, l.Discard(ghost), ErrNotFound)
}

func TestCreate_ValidatorBlocksRequest(t *testing.T) {
	remote := newFakeRemote()
	l := New[models.Pet](remote, WithValidator(func(p models.Pet) error { return models.Validate(p) }))

	_, err := l.Create(context.Background(), models.Pet{Type: "dog"})

	require.ErrorIs(t, err, models.ErrInvalidDraft)
	assert.Empty(t, l.Entries())
	assert.Empty(t, remote.pets)
}

func TestUpdate_ReplacesByID(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(models.Pet{PID: 1, Name: "Rex"}, models.Pet{PID: 2, Name: "Tom"})
	l := New[models.Pet](remote)
	require.NoError(t, l.Load(ctx))

	_, err := l.Update(ctx, 2, models.Pet{Name: "Tommy"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rex:confirmed", "Tommy:confirmed"}, names(l.Entries()))

	_, err = l.Update(ctx, 99, models.Pet{Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_FailureRestoresConfirmedWithError(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(models.Pet{PID: 1, Name: "Rex"})
	l := New[models.Pet](remote)
	require.NoError(t, l.Load(ctx))

	boom := errors.New("400")
	remote.setFail(boom)
	_, err := l.Update(ctx, 1, models.Pet{Name: "Rexy"})
	require.ErrorIs(t, err, boom)

	e := l.Entries()[0]
	assert.Equal(t, "Rex", e.Value.Name)
	assert.Equal(t, Confirmed, e.State)
	assert.ErrorIs(t, e.Err, boom)
}

func TestDelete_SecondDeleteLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(models.Pet{PID: 1, Name: "Rex"}, models.Pet{PID: 2, Name: "Tom"})
	l := New[models.Pet](remote)
	require.NoError(t, l.Load(ctx))
	other := New[models.Pet](remote)
	require.NoError(t, other.Load(ctx))

	require.NoError(t, l.Delete(ctx, 1))
	assert.Equal(t, []string{"Tom:confirmed"}, names(l.Entries()))

	// The second list still shows the row and gets the server's 404.
	err := other.Delete(ctx, 1)
	require.ErrorIs(t, err, errNotFoundRemote)
	assert.Equal(t, []string{"Rex:confirmed", "Tom:confirmed"}, names(other.Entries()))

	assert.ErrorIs(t, l.Delete(ctx, 1), ErrNotFound)
}

// A create confirmed while an older load is in flight stays visible, once,
// after the load lands.
func TestCreateRacingLoad_EventuallyConsistent(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(models.Pet{PID: 1, Name: "Rex"})
	l := New[models.Pet](remote)

	remote.listGate = make(chan struct{})
	loadDone := make(chan error)
	go func() { loadDone <- l.Load(ctx) }()
	require.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.listCalls == 1
	}, timeout, tick)

	created, err := l.Create(ctx, models.Pet{Name: "Bella"})
	require.NoError(t, err)

	close(remote.listGate)
	require.NoError(t, <-loadDone)

	entries := l.Entries()
	assert.Equal(t, []string{"Rex:confirmed", "Bella:confirmed"}, names(entries))
	assert.Equal(t, created.PID, entries[1].ID)

	remote.listGate = nil
	require.NoError(t, l.Load(ctx))
	assert.Equal(t, []string{"Rex:confirmed", "Bella:confirmed"}, names(l.Entries()), "no duplicate after reload")
}

func TestDeleteRacingLoad_DoesNotResurrect(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(models.Pet{PID: 1, Name: "Rex"}, models.Pet{PID: 2, Name: "Tom"})
	l := New[models.Pet](remote)
	require.NoError(t, l.Load(ctx))

	remote.listGate = make(chan struct{})
	loadDone := make(chan error)
	go func() { loadDone <- l.Load(ctx) }()
	require.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.listCalls == 2
	}, timeout, tick)

	require.NoError(t, l.Delete(ctx, 1))
	close(remote.listGate)
	require.NoError(t, <-loadDone)

	assert.Equal(t, []string{"Tom:confirmed"}, names(l.Entries()))
}

// scriptedRemote answers the n-th List call from calls[n], failing with
// errs[n] when set.
type scriptedRemote struct {
	fakeRemote
	calls []chan []models.Pet
	errs  map[int]error
	n     int
}

func (s *scriptedRemote) List(ctx context.Context) ([]models.Pet, error) {
	s.mu.Lock()
	n := s.n
	ch := s.calls[n]
	err := s.errs[n]
	s.n++
	s.mu.Unlock()
	return <-ch, err
}

func (s *scriptedRemote) started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func TestLoad_StaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	remote := &scriptedRemote{calls: []chan []models.Pet{make(chan []models.Pet), make(chan []models.Pet)}}
	l := New[models.Pet](remote)

	first := make(chan error)
	go func() { first <- l.Load(ctx) }()
	require.Eventually(t, func() bool { return remote.started() == 1 }, timeout, tick)

	second := make(chan error)
	go func() { second <- l.Load(ctx) }()
	require.Eventually(t, func() bool { return remote.started() == 2 }, timeout, tick)

	remote.calls[1] <- []models.Pet{{PID: 2, Name: "New"}}
	require.NoError(t, <-second)

	remote.calls[0] <- []models.Pet{{PID: 1, Name: "Old"}}
	require.NoError(t, <-first)

	assert.Equal(t, []string{"New:confirmed"}, names(l.Entries()))
}

func TestLoad_SupersededFailureStillReportsError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	remote := &scriptedRemote{
		calls: []chan []models.Pet{make(chan []models.Pet), make(chan []models.Pet)},
		errs:  map[int]error{0: boom},
	}
	l := New[models.Pet](remote)

	first := make(chan error)
	go func() { first <- l.Load(ctx) }()
	require.Eventually(t, func() bool { return remote.started() == 1 }, timeout, tick)

	second := make(chan error)
	go func() { second <- l.Load(ctx) }()
	require.Eventually(t, func() bool { return remote.started() == 2 }, timeout, tick)

	remote.calls[1] <- []models.Pet{{PID: 2, Name: "New"}}
	require.NoError(t, <-second)

	remote.calls[0] <- nil
	require.ErrorIs(t, <-first, boom)

	assert.Equal(t, []string{"New:confirmed"}, names(l.Entries()))
	assert.NoError(t, l.LastError(), "a dropped response does not mark the list failed")
}

func TestClose_DiscardsLateResults(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(models.Pet{PID: 1, Name: "Rex"})
	remote.listGate = make(chan struct{})
	l := New[models.Pet](remote)

	notified := 0
	l.Subscribe(func() { notified++ })

	done := make(chan error)
	go func() { done <- l.Load(ctx) }()
	require.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.listCalls == 1
	}, timeout, tick)

	l.Close()
	close(remote.listGate)

	require.ErrorIs(t, <-done, ErrClosed)
	assert.Empty(t, l.Entries())
	assert.Zero(t, notified)

	_, err := l.Create(ctx, models.Pet{Name: "x"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscribe_NotifiesOnChange(t *testing.T) {
	ctx := context.Background()
	l := New[models.Pet](newFakeRemote(models.Pet{PID: 1, Name: "Rex"}))

	var mu sync.Mutex
	calls := 0
	unsub := l.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	require.NoError(t, l.Load(ctx))
	unsub()
	require.NoError(t, l.Load(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestResolveKey(t *testing.T) {
	ctx := context.Background()
	l := New[models.Pet](newFakeRemote(models.Pet{PID: 5, Name: "Rex"}))
	require.NoError(t, l.Load(ctx))

	id, err := l.ResolveKey("5")
	require.NoError(t, err)
	assert.EqualValues(t, 5, id)

	_, err = l.ResolveKey("6")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.ResolveKey("abc")
	assert.ErrorIs(t, err, ErrNotFound)
}
