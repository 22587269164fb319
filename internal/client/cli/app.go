package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/g1appdev/hubbits/internal/client/config"
	"github.com/g1appdev/hubbits/internal/client/guard"
	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/services"
	"github.com/g1appdev/hubbits/internal/client/session"
	"github.com/g1appdev/hubbits/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
)

// command is one REPL entry: its guard requirement and handler.
type command struct {
	name string
	help string
	req  guard.Requirement
	run  func(ctx context.Context, args []string) error
}

// Deps are the collaborators of App. Config, Gatherer, Logger, In and Out
// are optional.
type Deps struct {
	Config   *config.Config
	Store    *session.Store
	API      services.API
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
	In       io.Reader
	Out      io.Writer
}

type App struct {
	config    *config.Config
	store     *session.Store
	api       services.API
	auth      *services.AuthService
	volunteer *services.VolunteerService
	sponsor   *services.SponsorService
	gatherer  prometheus.Gatherer
	log       logging.Logger
	reader    *bufio.Reader
	out       io.Writer
	secret    func(prompt string) ([]byte, error)

	router   *guard.Router
	commands map[string]command
	order    []string

	mu      sync.Mutex
	screens map[string]screenRunner

	// Forms kept after a failed submit, offered again on the next attempt.
	signupDraft   *models.SignupForm
	profileDraft  *models.ProfileUpdate
	adoptDraft    *models.Adoption
	donateDraft   *models.Donation
	volunteerForm *models.VolunteerSignUp

	unsubscribe func()
}

func NewApp(d Deps) *App {
	a := &App{
		config:    d.Config,
		store:     d.Store,
		api:       d.API,
		auth:      services.NewAuthService(d.API, d.Store, d.Logger),
		volunteer: services.NewVolunteerService(d.API),
		sponsor:   services.NewSponsorService(d.API),
		gatherer:  d.Gatherer,
		log:       d.Logger,
		out:       d.Out,
		screens:   make(map[string]screenRunner),
	}
	if a.log == nil {
		a.log = logging.Discard()
	}
	if a.out == nil {
		a.out = os.Stdout
	}

	if d.In == nil {
		a.reader = bufio.NewReader(os.Stdin)
		if term.IsTerminal(int(os.Stdin.Fd())) {
			a.secret = func(prompt string) ([]byte, error) { return GetPassword(prompt, a.out) }
		}
	} else {
		a.reader = bufio.NewReader(d.In)
	}
	if a.secret == nil {
		a.secret = func(prompt string) ([]byte, error) {
			line, err := GetSimpleText(a.reader, prompt, a.out)
			return []byte(line), err
		}
	}

	a.registerCommands()
	a.unsubscribe = a.store.Subscribe(func(s session.Snapshot) {
		if !s.HasIdentity && s.State != session.StateLoading {
			a.closeScreens()
		}
	})
	return a
}

func (a *App) registerCommands() {
	user := guard.Authenticated
	admin := guard.RequireRole(models.RoleAdmin)

	cmds := []command{
		{"help", "show available commands", guard.Public, a.Help},
		{"login", "sign in: login [username]", guard.Public, a.Login},
		{"signup", "create an account", guard.Public, a.Signup},
		{"whoami", "show the signed-in user", guard.Public, a.Whoami},
		{"exit", "leave the program", guard.Public, nil},
		{"logout", "sign out", user, a.Logout},
		{"profile", "show your profile; profile edit", user, a.Profile},
		{"passwd", "change your password", user, a.Passwd},
		{"pets", "browse pets", user, a.screen("pets")},
		{"adopt", "apply to adopt or rehome a pet", user, a.Adopt},
		{"donate", "make a donation", user, a.Donate},
		{"articles", "news feed", user, a.screen("articles")},
		{"opportunities", "volunteering opportunities", user, a.screen("opportunities")},
		{"volunteer", "volunteer <id> | volunteer count <id>", user, a.Volunteer},
		{"lostfound", "lost and found reports", user, a.screen("lostfound")},
		{"sponsor", "sponsor <pet id> <amount>", user, a.Sponsor},
		{"stats", "client request metrics", user, a.Stats},
		{"adoptions", "manage adoption requests", admin, a.screen("adoptions")},
		{"donations", "manage donations", admin, a.screen("donations")},
		{"users", "manage user accounts", admin, a.screen("users")},
		{"admin", "dashboard", admin, a.Dashboard},
	}

	a.commands = make(map[string]command, len(cmds))
	routes := make([]guard.Route, 0, len(cmds))
	for _, c := range cmds {
		a.commands[c.name] = c
		a.order = append(a.order, c.name)
		routes = append(routes, guard.Route{Name: c.name, Requirement: c.req})
	}
	a.router = guard.NewRouter(a.store, routes...)
}

// Run starts the REPL and blocks until the user exits or ctx ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	fmt.Fprintln(a.out, "Welcome to Hubbits CLI (type 'help' for commands)")
	if a.config != nil {
		fmt.Fprintln(a.out, "API:", a.config.ServerURL)
	}
	runREPL(ctx, a, a.status, a.reader, a.out)
}

// Close releases the screens and the session subscription.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.closeScreens()
}

func (a *App) status() string {
	snap := a.store.Snapshot()
	switch {
	case snap.State == session.StateLoading:
		return "(loading)"
	case snap.HasIdentity:
		return fmt.Sprintf("(%s %s)", snap.Identity.Username, snap.Identity.Roles())
	default:
		return "(anonymous)"
	}
}

// Exec routes cmd through the guard and runs it when the session allows.
func (a *App) Exec(ctx context.Context, cmd string, args []string) bool {
	c, ok := a.commands[cmd]
	if !ok {
		fmt.Fprintln(a.out, "Unknown command:", cmd)
		return false
	}

	decision, _, err := a.router.Navigate(cmd)
	if err != nil {
		a.printErr(err)
		return false
	}
	if decision == guard.Pending {
		fmt.Fprintln(a.out, "restoring session...")
		if _, err := guard.Wait(ctx, a.store); err != nil {
			a.printErr(err)
			return false
		}
		decision, _, _ = a.router.Navigate(cmd)
	}

	switch decision {
	case guard.RedirectLanding:
		fmt.Fprintln(a.out, "please log in")
		return false
	case guard.RedirectUnauthorized:
		fmt.Fprintln(a.out, "unauthorized")
		return false
	}

	if c.run == nil {
		fmt.Fprintln(a.out, "Bye!")
		return true
	}
	if err := c.run(ctx, args); err != nil {
		a.printErr(err)
	}
	return false
}

// Help lists the commands the current session may run.
func (a *App) Help(ctx context.Context, args []string) error {
	snap := a.store.Snapshot()
	var lines []string
	for _, name := range a.order {
		c := a.commands[name]
		if guard.Decide(snap, c.req) == guard.Render {
			lines = append(lines, fmt.Sprintf("  %-14s %s", name, c.help))
		}
	}
	fmt.Fprintln(a.out, "Available commands:")
	fmt.Fprintln(a.out, strings.Join(lines, "\n"))
	fmt.Fprintln(a.out, "Screens take: list | reload | add | edit <id> | rm <id> | discard <key> | retry <key>")
	return nil
}

func (a *App) closeScreens() {
	a.mu.Lock()
	screens := a.screens
	a.screens = make(map[string]screenRunner)
	a.mu.Unlock()

	for _, s := range screens {
		s.Close()
	}
}

// Resolve is the session resolver of the App's account service, for
// restoring a saved session with session.Store.Init.
func (a *App) Resolve(ctx context.Context) (models.Identity, error) {
	return a.auth.Resolve(ctx)
}
