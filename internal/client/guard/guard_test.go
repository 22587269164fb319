package guard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/g1appdev/hubbits/internal/client/client"
	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(state session.State, role string) session.Snapshot {
	s := session.Snapshot{State: state}
	if role != "" {
		s.HasIdentity = true
		s.Identity = models.Identity{UserID: 1, Username: "u", Role: role}
	}
	return s
}

func TestDecide(t *testing.T) {
	admin := RequireRole(models.RoleAdmin)
	user := RequireRole(models.RoleUser)

	tests := []struct {
		name string
		snap session.Snapshot
		req  Requirement
		want Decision
	}{
		{name: "loading never redirects", snap: snap(session.StateLoading, ""), req: admin, want: Pending},
		{name: "loading with cached user", snap: snap(session.StateLoading, "ROLE_USER"), req: Authenticated, want: Pending},
		{name: "public for anonymous", snap: snap(session.StateAnonymous, ""), req: Public, want: Render},
		{name: "auth without identity", snap: snap(session.StateAnonymous, ""), req: Authenticated, want: RedirectLanding},
		{name: "role without identity", snap: snap(session.StateAnonymous, ""), req: admin, want: RedirectLanding},
		{name: "user on admin route", snap: snap(session.StateAuthenticated, "ROLE_USER"), req: admin, want: RedirectUnauthorized},
		{name: "admin on admin route", snap: snap(session.StateAuthenticated, "ROLE_ADMIN"), req: admin, want: Render},
		{name: "admin on user route", snap: snap(session.StateAuthenticated, "ROLE_ADMIN"), req: user, want: Render},
		{name: "no substring match", snap: snap(session.StateAuthenticated, "ROLE_ADMINISTRATOR"), req: admin, want: RedirectUnauthorized},
		{name: "authenticated", snap: snap(session.StateAuthenticated, "ROLE_USER"), req: Authenticated, want: Render},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.snap, tt.req))
		})
	}
}

type fixedSource struct{ s session.Snapshot }

func (f fixedSource) Snapshot() session.Snapshot { return f.s }

func TestRouter_Navigate(t *testing.T) {
	routes := []Route{
		{Name: "pets", Requirement: Authenticated},
		{Name: "admin", Requirement: RequireRole(models.RoleAdmin)},
		{Name: "help", Requirement: Public},
	}

	r := NewRouter(fixedSource{snap(session.StateAuthenticated, "ROLE_USER")}, routes...)

	d, target, err := r.Navigate("admin")
	require.NoError(t, err)
	assert.Equal(t, RedirectUnauthorized, d)
	assert.Equal(t, RouteUnauthorized, target)

	d, target, err = r.Navigate("pets")
	require.NoError(t, err)
	assert.Equal(t, Render, d)
	assert.Equal(t, "pets", target)

	anon := NewRouter(fixedSource{snap(session.StateAnonymous, "")}, routes...)
	d, target, err = anon.Navigate("pets")
	require.NoError(t, err)
	assert.Equal(t, RedirectLanding, d)
	assert.Equal(t, RouteLanding, target)

	_, _, err = r.Navigate("nope")
	require.Error(t, err)
}

func newStore(t *testing.T) *session.Store {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "hubbits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return session.New(session.NewSQLitePersistence(db))
}

func TestWait_UnblocksWhenInitFinishes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	done := make(chan session.Snapshot)
	go func() {
		snap, err := Wait(ctx, s)
		assert.NoError(t, err)
		done <- snap
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while loading")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, s.Init(ctx, nil))

	select {
	case snap := <-done:
		assert.Equal(t, session.StateAnonymous, snap.State)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	snap, err := Wait(ctx, s)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, session.StateLoading, snap.State)
}
