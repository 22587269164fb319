// Package guard decides whether a screen may render for the current session.
package guard

import (
	"context"
	"fmt"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/session"
)

// Route names the guard redirects to.
const (
	RouteLanding      = "landing"
	RouteUnauthorized = "unauthorized"
)

// Requirement is what a route needs from the session.
type Requirement struct {
	auth bool
	role models.Role
}

var (
	Public        = Requirement{}
	Authenticated = Requirement{auth: true}
)

// RequireRole requires a signed-in identity granted role.
func RequireRole(role models.Role) Requirement {
	return Requirement{auth: true, role: role}
}

func (r Requirement) String() string {
	switch {
	case r.role != "":
		return "role " + string(r.role)
	case r.auth:
		return "authenticated"
	default:
		return "public"
	}
}

// Decision is the outcome of a guard check.
type Decision int

const (
	Render Decision = iota
	Pending
	RedirectLanding
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case Pending:
		return "pending"
	case RedirectLanding:
		return "redirect-landing"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Decide applies req to snap. A loading session is always Pending, never a
// redirect.
func Decide(snap session.Snapshot, req Requirement) Decision {
	if snap.State == session.StateLoading {
		return Pending
	}
	if !req.auth {
		return Render
	}
	if !snap.HasIdentity {
		return RedirectLanding
	}
	if req.role != "" && !snap.Identity.HasRole(req.role) {
		return RedirectUnauthorized
	}
	return Render
}

// Route is a named destination with its requirement.
type Route struct {
	Name        string
	Requirement Requirement
}

// SnapshotSource is the read side of session.Store.
type SnapshotSource interface {
	Snapshot() session.Snapshot
}

// Router resolves navigation against a session.
type Router struct {
	src    SnapshotSource
	routes map[string]Route
}

func NewRouter(src SnapshotSource, routes ...Route) *Router {
	r := &Router{src: src, routes: make(map[string]Route, len(routes))}
	for _, rt := range routes {
		r.routes[rt.Name] = rt
	}
	return r
}

// Add registers or replaces a route.
func (r *Router) Add(rt Route) { r.routes[rt.Name] = rt }

// Route looks up a route by name.
func (r *Router) Route(name string) (Route, bool) {
	rt, ok := r.routes[name]
	return rt, ok
}

// Navigate returns the decision for name and the route to show: the route
// itself on Render or Pending, otherwise the redirect target. Unknown names
// are an error.
func (r *Router) Navigate(name string) (Decision, string, error) {
	rt, ok := r.routes[name]
	if !ok {
		return 0, "", fmt.Errorf("unknown route %q", name)
	}
	d := Decide(r.src.Snapshot(), rt.Requirement)
	switch d {
	case RedirectLanding:
		return d, RouteLanding, nil
	case RedirectUnauthorized:
		return d, RouteUnauthorized, nil
	default:
		return d, rt.Name, nil
	}
}

// Watcher is the part of session.Store Wait needs.
type Watcher interface {
	SnapshotSource
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Wait blocks until the session leaves StateLoading or ctx ends.
func Wait(ctx context.Context, w Watcher) (session.Snapshot, error) {
	ch := make(chan session.Snapshot, 1)
	unsub := w.Subscribe(func(s session.Snapshot) {
		if s.State == session.StateLoading {
			return
		}
		select {
		case ch <- s:
		default:
		}
	})
	defer unsub()

	if snap := w.Snapshot(); snap.State != session.StateLoading {
		return snap, nil
	}

	select {
	case snap := <-ch:
		return snap, nil
	case <-ctx.Done():
		return w.Snapshot(), ctx.Err()
	}
}
