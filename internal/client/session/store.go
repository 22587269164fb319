package session

import (
	"context"
	"sync"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/logging"
)

// State is the session lifecycle stage.
type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of state and identity.
type Snapshot struct {
	State    State
	Identity models.Identity
	// HasIdentity is false when no user is signed in.
	HasIdentity bool
}

// Resolver answers "who am I" for the stored access token.
type Resolver func(ctx context.Context) (models.Identity, error)

// Store is safe for concurrent use. Subscribers are called synchronously,
// outside the lock, after every change.
type Store struct {
	// wmu orders writes so memory and durable storage change together.
	wmu      sync.Mutex
	mu       sync.RWMutex
	state    State
	identity *models.Identity
	cached   *models.Identity
	tokens   models.TokenPair
	// epoch counts Set, SetTokens and Clear calls; Init uses it to detect
	// a login or logout that happened while it was restoring.
	epoch int

	persist Persistence
	log     logging.Logger

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns a store in StateLoading backed by p.
func New(p Persistence, opts ...Option) *Store {
	s := &Store{
		state:   StateLoading,
		persist: p,
		log:     logging.Discard(),
		subs:    make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the signed-in identity without blocking or I/O.
func (s *Store) Get() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

// Cached returns the profile saved by the previous run, available before
// Init resolves it.
func (s *Store) Cached() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return models.Identity{}, false
	}
	return *s.cached, true
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.identity != nil {
		snap.Identity = *s.identity
		snap.HasIdentity = true
	}
	return snap
}

func (s *Store) Tokens() models.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// Set replaces the identity and caches it durably.
func (s *Store) Set(ctx context.Context, identity models.Identity) error {
	_, err := s.set(ctx, identity, -1)
	return err
}

// set stores identity when epoch is -1 or still the current epoch. It
// reports whether the identity was stored.
func (s *Store) set(ctx context.Context, identity models.Identity, epoch int) (bool, error) {
	s.wmu.Lock()
	s.mu.Lock()
	if epoch >= 0 && s.epoch != epoch {
		s.mu.Unlock()
		s.wmu.Unlock()
		return false, nil
	}
	id := identity
	s.identity = &id
	s.cached = &id
	s.epoch++
	if s.state != StateLoading {
		s.state = StateAuthenticated
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	err := s.persist.SaveIdentity(ctx, identity)
	s.wmu.Unlock()
	if err != nil {
		s.log.Error(ctx, "persist identity", "error", err)
	}
	s.notify(snap)
	return true, err
}

// SetTokens stores a new pair. An empty refresh keeps the current one.
// Like Set it supersedes a restore still in flight.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	s.epoch++
	tokens := s.storeTokensLocked(access, refresh)
	s.mu.Unlock()
	return s.saveTokens(ctx, tokens)
}

// ReplaceTokens stores a refreshed pair only while sent is still the stored
// refresh token, so a refresh that finishes after a logout or another login
// does not bring its tokens back. It reports whether the pair was stored.
func (s *Store) ReplaceTokens(ctx context.Context, sent, access, refresh string) (bool, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	if sent == "" || s.tokens.RefreshToken != sent {
		s.mu.Unlock()
		return false, nil
	}
	tokens := s.storeTokensLocked(access, refresh)
	s.mu.Unlock()
	return true, s.saveTokens(ctx, tokens)
}

func (s *Store) storeTokensLocked(access, refresh string) models.TokenPair {
	s.tokens.AccessToken = access
	if refresh != "" {
		s.tokens.RefreshToken = refresh
	}
	return s.tokens
}

func (s *Store) saveTokens(ctx context.Context, tokens models.TokenPair) error {
	if err := s.persist.SaveTokens(ctx, tokens); err != nil {
		s.log.Error(ctx, "persist tokens", "error", err)
		return err
	}
	return nil
}

// SetAccessToken replaces only the access token.
func (s *Store) SetAccessToken(ctx context.Context, access string) error {
	return s.SetTokens(ctx, access, "")
}

// Clear forgets identity and tokens in memory and in durable storage.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.clear(ctx, -1)
	return err
}

// clear is Clear gated on epoch like set; a negative epoch always clears.
func (s *Store) clear(ctx context.Context, epoch int) (bool, error) {
	s.wmu.Lock()
	s.mu.Lock()
	if epoch >= 0 && s.epoch != epoch {
		s.mu.Unlock()
		s.wmu.Unlock()
		return false, nil
	}
	s.identity = nil
	s.cached = nil
	s.tokens = models.TokenPair{}
	s.epoch++
	if s.state != StateLoading {
		s.state = StateAnonymous
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	err := s.persist.Clear(ctx)
	s.wmu.Unlock()
	if err != nil {
		s.log.Error(ctx, "clear persisted session", "error", err)
	}
	s.notify(snap)
	return true, err
}

// Init restores the saved session. Without an access token the store
// becomes anonymous without calling resolve. Otherwise resolve decides: an
// identity authenticates the store, any error clears it. A Set or Clear
// made by someone else while Init runs wins over the restored session. The
// resolve error is returned for reporting; the store is usable either way.
func (s *Store) Init(ctx context.Context, resolve Resolver) error {
	epoch := s.currentEpoch()

	saved, err := s.persist.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "load persisted session", "error", err)
		_, _ = s.clear(ctx, epoch)
		s.finish()
		return err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.log.Info(ctx, "session changed before restore")
		s.finish()
		return nil
	}
	s.tokens = saved.Tokens
	s.cached = saved.Identity
	s.mu.Unlock()

	if saved.Tokens.AccessToken == "" {
		_, _ = s.clear(ctx, epoch)
		s.finish()
		return nil
	}

	identity, err := resolve(ctx)
	if err != nil {
		s.log.Info(ctx, "saved session rejected", "error", err)
		_, _ = s.clear(ctx, epoch)
		s.finish()
		return err
	}

	if ok, _ := s.set(ctx, identity, epoch); !ok {
		s.log.Info(ctx, "session changed during restore", "user_id", identity.UserID)
	}
	s.finish()
	return nil
}

// currentEpoch counts Set, SetTokens and Clear calls.
func (s *Store) currentEpoch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// finish ends loading: authenticated when an identity is present.
func (s *Store) finish() {
	s.mu.Lock()
	s.state = StateAnonymous
	if s.identity != nil {
		s.state = StateAuthenticated
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Subscribe registers fn for change notifications and returns a func that
// removes it.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
