package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/g1appdev/hubbits/internal/client/listsync"
	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/services"
)

const shortKeyLen = 8

var errUsage = errors.New("usage")

// screenRunner is one entity screen kept open across commands.
type screenRunner interface {
	Run(ctx context.Context, args []string) error
	Close()
}

// screen drives a synchronized list with REPL sub-actions.
type screen[T listsync.Identified[T]] struct {
	app    *App
	name   string
	list   *listsync.List[T]
	fields []field[T]
	ep     services.Endpoints

	// drafts holds forms whose submit failed, by entry key; "" is a new one.
	drafts map[string]T
}

func newScreen[T listsync.Identified[T]](a *App, ep services.Endpoints, fields []field[T]) *screen[T] {
	validate := func(v T) error { return models.Validate(v) }
	return &screen[T]{
		app:  a,
		name: ep.Name,
		list: listsync.New[T](services.NewResource[T](a.api, ep),
			listsync.WithValidator[T](validate),
			listsync.WithLogger[T](a.log.With("list", ep.Name)),
		),
		fields: fields,
		ep:     ep,
		drafts: make(map[string]T),
	}
}

// screen returns the handler of the named screen command.
func (a *App) screen(name string) func(ctx context.Context, args []string) error {
	return func(ctx context.Context, args []string) error {
		return a.screenFor(name).Run(ctx, args)
	}
}

func (a *App) screenFor(name string) screenRunner {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.screens[name]; ok {
		return s
	}

	var s screenRunner
	switch name {
	case "pets":
		s = newScreen(a, services.PetEndpoints, petFields)
	case "adoptions":
		s = newScreen(a, services.AdoptionEndpoints, adoptionAdminFields)
	case "donations":
		s = newScreen(a, services.DonationEndpoints, donationFields)
	case "articles":
		s = newScreen(a, services.ArticleEndpoints, articleFields)
	case "opportunities":
		s = newScreen(a, services.OpportunityEndpoints, opportunityFields)
	case "lostfound":
		s = newScreen(a, services.LostFoundEndpoints, lostFoundFields)
	case "users":
		s = newScreen(a, services.UserEndpoints, userFields)
	default:
		panic("cli: unknown screen " + name)
	}
	a.screens[name] = s
	return s
}

func (s *screen[T]) Close() { s.list.Close() }

func (s *screen[T]) Run(ctx context.Context, args []string) error {
	action := "list"
	if len(args) > 0 {
		action = args[0]
		args = args[1:]
	}

	switch action {
	case "list":
		if !s.list.Loaded() {
			return s.reload(ctx)
		}
		s.print()
		return nil
	case "reload":
		return s.reload(ctx)
	case "add":
		return s.add(ctx)
	}

	if len(args) != 1 {
		return fmt.Errorf("%w: %s %s <key>", errUsage, s.name, action)
	}
	key, err := s.resolve(args[0])
	if err != nil {
		return err
	}

	switch action {
	case "edit":
		return s.edit(ctx, key)
	case "rm":
		id, err := s.list.ResolveKey(key)
		if err != nil {
			return err
		}
		if err := s.list.Delete(ctx, id); err != nil {
			return err
		}
		delete(s.drafts, key)
		fmt.Fprintf(s.app.out, "Deleted %s %s\n", s.name, key)
	case "discard":
		if err := s.list.Discard(key); err != nil {
			return err
		}
		fmt.Fprintln(s.app.out, "Discarded", shortKey(key))
	case "retry":
		created, err := s.list.Retry(ctx, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.app.out, "Saved %s %d\n", s.name, created.RecordID())
	default:
		return fmt.Errorf("%w: unknown action %q", errUsage, action)
	}
	return nil
}

// reload fetches the collection. A failed load keeps showing the last rows.
func (s *screen[T]) reload(ctx context.Context) error {
	err := s.list.Load(ctx)
	if err != nil && s.list.Loaded() {
		fmt.Fprintln(s.app.out, "Reload failed, showing the last known list")
		s.print()
	} else if err == nil {
		s.print()
	}
	return err
}

func (s *screen[T]) print() {
	entries := s.list.Entries()
	if len(entries) == 0 {
		fmt.Fprintf(s.app.out, "No %s\n", s.name)
		return
	}
	for _, e := range entries {
		state := ""
		if e.State != listsync.Confirmed {
			state = " [" + e.State.String() + "]"
		}
		fmt.Fprintf(s.app.out, "%-8s %v%s\n", shortKey(e.Key), e.Value, state)
		if e.Err != nil {
			fmt.Fprintf(s.app.out, "         ! %s\n", errorText(e.Err))
		}
	}
}

func (s *screen[T]) add(ctx context.Context) error {
	v, err := readForm(s.app, s.fields, s.drafts[""])
	if err != nil {
		s.drafts[""] = v
		return err
	}
	ctx, err = s.attachment(ctx, http.MethodPost)
	if err != nil {
		return err
	}

	created, err := s.list.Create(ctx, v)
	if errors.Is(err, models.ErrInvalidDraft) {
		s.drafts[""] = v
		return err
	}
	delete(s.drafts, "")
	if err != nil {
		fmt.Fprintf(s.app.out, "Not saved; '%s retry <key>' or '%s discard <key>'\n", s.name, s.name)
		return err
	}
	fmt.Fprintf(s.app.out, "Saved %s %d\n", s.name, created.RecordID())
	return nil
}

func (s *screen[T]) edit(ctx context.Context, key string) error {
	id, err := s.list.ResolveKey(key)
	if err != nil {
		return err
	}
	initial, ok := s.drafts[key]
	if !ok {
		if initial, ok = s.list.Get(id); !ok {
			return listsync.ErrNotFound
		}
	}

	v, err := readForm(s.app, s.fields, initial)
	if err != nil {
		s.drafts[key] = v
		return err
	}
	ctx, err = s.attachment(ctx, http.MethodPut)
	if err != nil {
		return err
	}

	if _, err := s.list.Update(ctx, id, v); err != nil {
		s.drafts[key] = v
		return err
	}
	delete(s.drafts, key)
	fmt.Fprintf(s.app.out, "Updated %s %d\n", s.name, id)
	return nil
}

// attachment asks for a file when method bodies can carry one.
func (s *screen[T]) attachment(ctx context.Context, method string) (context.Context, error) {
	if !s.ep.Uploads(method) {
		return ctx, nil
	}
	path, err := GetSimpleText(s.app.reader, "File to upload (blank for none)", s.app.out)
	if err != nil {
		return ctx, err
	}
	if path == "" {
		return ctx, nil
	}
	return services.WithAttachment(ctx, path), nil
}

// resolve expands a displayed key, which may be a prefix of a provisional
// key, to the full entry key.
func (s *screen[T]) resolve(prefix string) (string, error) {
	var match string
	for _, e := range s.list.Entries() {
		if e.Key == prefix {
			return e.Key, nil
		}
		if e.Provisional() && strings.HasPrefix(e.Key, prefix) {
			if match != "" {
				return "", fmt.Errorf("key %q is ambiguous", prefix)
			}
			match = e.Key
		}
	}
	if match == "" {
		return "", fmt.Errorf("%s %s: %w", s.name, prefix, listsync.ErrNotFound)
	}
	return match, nil
}

func shortKey(key string) string {
	if len(key) > shortKeyLen {
		return key[:shortKeyLen]
	}
	return key
}
