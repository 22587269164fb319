package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/g1appdev/hubbits/internal/apitest"
	"github.com/g1appdev/hubbits/internal/client/client"
	"github.com/g1appdev/hubbits/internal/client/listsync"
	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness drives an App against a fake API. Lines written to in before a
// command are what its prompts read.
type harness struct {
	api   *apitest.Server
	store *session.Store
	app   *App
	in    *bytes.Buffer
	out   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	api := apitest.New()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	_, err := api.AddUser(models.User{Username: "alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Doe"}, "secret12")
	require.NoError(t, err)
	_, err = api.AddUser(models.User{Username: "root", Email: "root@example.com", Role: string(models.RoleAdmin)}, "rootroot")
	require.NoError(t, err)

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "hubbits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := session.New(session.NewSQLitePersistence(db))
	require.NoError(t, store.Init(ctx, nil))

	reg := prometheus.NewRegistry()
	hc, err := client.New(srv.URL, store, client.WithMetrics(client.NewMetrics(reg)))
	require.NoError(t, err)

	h := &harness{api: api, store: store, in: &bytes.Buffer{}, out: &bytes.Buffer{}}
	h.app = NewApp(Deps{Store: store, API: hc, Gatherer: reg, In: h.in, Out: h.out})
	t.Cleanup(h.app.Close)
	return h
}

// exec runs one command line with input queued for its prompts and returns
// what it printed.
func (h *harness) exec(line string, input ...string) string {
	h.out.Reset()
	for _, l := range input {
		h.in.WriteString(l + "\n")
	}
	parts := strings.Fields(line)
	h.app.Exec(context.Background(), parts[0], parts[1:])
	return h.out.String()
}

func (h *harness) login(t *testing.T, username, password string) {
	t.Helper()
	out := h.exec("login "+username, password)
	require.Contains(t, out, "Logged in as")
}

// petForm answers the pet prompts of an add, ending with no photo file.
func petForm(name string) []string {
	return []string{name, "dog", "lab", "3", "male", "friendly", "", "available", "n", ""}
}

func TestApp_Run_ScriptedSession(t *testing.T) {
	h := newHarness(t)
	h.in.WriteString("help\nlogin alice\nsecret12\nwhoami\nbogus\nexit\nwhoami\n")

	h.app.Run(context.Background())

	out := h.out.String()
	assert.Contains(t, out, "Welcome to Hubbits CLI")
	assert.Contains(t, out, "hubbits (anonymous)> ")
	assert.Contains(t, out, "Logged in as Alice Doe (ROLE_USER)")
	assert.Contains(t, out, "hubbits (alice ROLE_USER)> ")
	assert.Contains(t, out, "alice <alice@example.com>")
	assert.Contains(t, out, "access token expires")
	assert.Contains(t, out, "Unknown command: bogus")
	assert.Contains(t, out, "Bye!")
	assert.Equal(t, 1, strings.Count(out, "alice <alice@example.com>"), "commands after exit must not run")
}

func TestApp_Guard(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.exec("pets"), "please log in")
	assert.NotContains(t, h.exec("help"), "users")

	h.login(t, "alice", "secret12")
	assert.Contains(t, h.exec("users"), "unauthorized")
	assert.Contains(t, h.exec("admin"), "unauthorized")
	assert.Contains(t, h.exec("help"), "pets")

	h.login(t, "root", "rootroot")
	out := h.exec("admin")
	assert.Contains(t, out, "Users:     2")
	assert.Contains(t, out, "Pets:      0")
}

func TestApp_Login_WrongPassword(t *testing.T) {
	h := newHarness(t)

	out := h.exec("login alice", "nope")
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "Invalid username or password")
	_, ok := h.store.Get()
	assert.False(t, ok)
}

func TestApp_Pets_AddEditRemove(t *testing.T) {
	h := newHarness(t)
	h.api.AddPet(models.Pet{Name: "Tom", Type: "cat", Status: "available"})
	h.login(t, "alice", "secret12")

	out := h.exec("pets")
	assert.Contains(t, out, "Tom (cat, ) available")

	out = h.exec("pets add", petForm("Rex")...)
	require.Contains(t, out, "Saved pets 2")

	edit := append([]string{"Max"}, make([]string, 8)...)
	out = h.exec("pets edit 2", edit...)
	require.Contains(t, out, "Updated pets 2")

	pets := h.api.Pets()
	require.Len(t, pets, 2)
	assert.Equal(t, "Max", pets[1].Name)
	assert.Equal(t, "lab", pets[1].Breed, "blank answers keep the current value")

	out = h.exec("pets rm 1")
	assert.Contains(t, out, "Deleted pets 1")
	assert.Contains(t, h.exec("pets rm 1"), "not found")

	out = h.exec("pets list")
	assert.NotContains(t, out, "Tom")
	assert.Contains(t, out, "Max (dog, lab) available")
}

func TestApp_Pets_InvalidDraftIsKept(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")

	out := h.exec("pets add", petForm("")...)
	assert.Contains(t, out, "Name is required")
	assert.Empty(t, h.api.Pets())

	// The rejected form is offered again with its answers prefilled.
	out = h.exec("pets add", append([]string{"Rex"}, make([]string, 9)...)...)
	assert.Contains(t, out, "Type [dog]")
	assert.Contains(t, out, "Saved pets")
	require.Len(t, h.api.Pets(), 1)
	assert.Equal(t, "lab", h.api.Pets()[0].Breed)
}

func TestApp_Pets_FailedCreateRetry(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")
	h.api.FailNext(http.MethodPost, "/api/pet/postpetrecord", http.StatusInternalServerError, `{"message":"db down"}`)

	out := h.exec("pets add", petForm("Rex")...)
	assert.Contains(t, out, "Not saved")
	assert.Contains(t, out, "db down")

	out = h.exec("pets")
	assert.Contains(t, out, "Rex (dog, lab) available [failed]")

	s := h.app.screenFor("pets").(*screen[models.Pet])
	entries := s.list.Entries()
	require.Len(t, entries, 1)
	require.True(t, entries[0].Provisional())
	assert.Equal(t, listsync.Failed, entries[0].State)

	out = h.exec("pets retry " + shortKey(entries[0].Key))
	assert.Contains(t, out, "Saved pets 1")
	assert.NotContains(t, h.exec("pets"), "[failed]")
	assert.Len(t, h.api.Pets(), 1)
}

func TestApp_Pets_DiscardFailedCreate(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")
	h.api.FailNext(http.MethodPost, "/api/pet/postpetrecord", http.StatusBadRequest, `{"message":"bad pet"}`)

	h.exec("pets add", petForm("Rex")...)
	entries := h.app.screenFor("pets").(*screen[models.Pet]).list.Entries()
	require.Len(t, entries, 1)

	assert.Contains(t, h.exec("pets discard "+shortKey(entries[0].Key)), "Discarded")
	assert.Contains(t, h.exec("pets"), "No pets")
}

func TestApp_Pets_ReloadErrorKeepsList(t *testing.T) {
	h := newHarness(t)
	h.api.AddPet(models.Pet{Name: "Tom", Type: "cat"})
	h.login(t, "alice", "secret12")
	require.Contains(t, h.exec("pets"), "Tom")

	h.api.FailNext(http.MethodGet, "/api/pet/getAllPets", http.StatusServiceUnavailable, `{"message":"maintenance"}`)
	out := h.exec("pets reload")
	assert.Contains(t, out, "Reload failed, showing the last known list")
	assert.Contains(t, out, "Tom")
	assert.Contains(t, out, "maintenance")
}

func TestApp_Articles_UploadsAttachment(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")
	img := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(img, []byte("png bytes"), 0o600))

	out := h.exec("articles add", "Kittens", "Three new kittens.", "", "Staff", "", "", img)
	require.Contains(t, out, "Saved articles 1")

	require.Len(t, h.api.Articles(), 1)
	assert.Equal(t, "Three new kittens.", h.api.Articles()[0].Content)
	uploads := h.api.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "cat.png", uploads[0].Filename)
}

func TestApp_VolunteerAndSponsor(t *testing.T) {
	h := newHarness(t)
	opp := h.api.AddOpportunity(models.Opportunity{Title: "Walk dogs", Description: "Saturday walk",
		RegistrationStartDate: "2026-01-01", RegistrationEndDate: "2026-02-01", VolunteerDatetime: "2026-02-02T10:00"})
	pet := h.api.AddPet(models.Pet{Name: "Rex", Type: "dog", AllowSponsorship: true})
	h.login(t, "alice", "secret12")

	// Name and email come from the profile; blank answers accept them.
	out := h.exec("volunteer 1", "", "", "", "", "")
	require.Contains(t, out, "Signed up for opportunity 1")
	require.Len(t, h.api.Signups(opp.OpportunityID), 1)
	assert.Equal(t, "alice@example.com", h.api.Signups(opp.OpportunityID)[0].Email)

	assert.Contains(t, h.exec("volunteer count 1"), "1 volunteer(s) signed up for 1")
	assert.Contains(t, h.exec("volunteer 99", "", "", "", "", ""), "Error:")

	assert.Contains(t, h.exec("sponsor 1 25.5"), "Sponsored pet 1 with 25.50")
	assert.InDelta(t, 25.5, h.api.Sponsored(pet.PID), 0.001)
	assert.Contains(t, h.exec("sponsor 1 abc"), "is not a number")
	assert.Contains(t, h.exec("sponsor 1"), "usage")
}

func TestApp_AdoptAndDonate(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")

	out := h.exec("adopt", "Alice Doe", "1 Main St", "555-0100", "2026-10-17", "dog", "lab", "")
	assert.Contains(t, out, "status PENDING")

	out = h.exec("donate", "0", "once", "Alice", "Doe", "", "")
	assert.Contains(t, out, "Amount must be > 0")
	out = h.exec("donate", "10", "", "", "", "", "")
	assert.Contains(t, out, "Donation 1 of 10.00 recorded")

	h.login(t, "root", "rootroot")
	out = h.exec("adoptions")
	assert.Contains(t, out, "Alice Doe")
	out = h.exec("donations")
	assert.Contains(t, out, "Alice")
}

func TestApp_Passwd(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")

	assert.Contains(t, h.exec("passwd", "secret12", "newpass99", "other999"), "passwords do not match")
	assert.Contains(t, h.exec("passwd", "wrong", "newpass99", "newpass99"), "Old password is incorrect")
	assert.Contains(t, h.exec("passwd", "secret12", "newpass99", "newpass99"), "Password changed")

	h.exec("logout")
	h.login(t, "alice", "newpass99")
}

func TestApp_Signup(t *testing.T) {
	h := newHarness(t)

	out := h.exec("signup", "alice", "new@example.com", "New", "User", "", "")
	assert.Contains(t, out, `username "alice" is already taken`)

	out = h.exec("signup", "bob", "", "", "", "", "", "password1", "password1")
	require.Contains(t, out, "Account created")
	h.login(t, "bob", "password1")
	assert.Contains(t, h.exec("whoami"), "bob <new@example.com>")
}

func TestApp_ProfileEdit(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")

	out := h.exec("profile")
	assert.Contains(t, out, "Name:     Alice Doe")

	out = h.exec("profile edit", "", "", "Alicia", "", "", "", "")
	require.Contains(t, out, "Profile updated for alice")
	id, ok := h.store.Get()
	require.True(t, ok)
	assert.Equal(t, "Alicia", id.FirstName)
}

func TestApp_StatsAndLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")
	h.exec("pets")

	out := h.exec("stats")
	assert.Contains(t, out, "hubbits_client_requests_total{method=GET,status=2xx}")

	h.exec("pets")
	require.Len(t, h.app.screens, 1)
	assert.Contains(t, h.exec("logout"), "Logged out")
	assert.Empty(t, h.app.screens, "screens close with the session")
	assert.Contains(t, h.exec("pets"), "please log in")
}

func TestApp_ExpiredSessionRefreshes(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret12")
	h.api.ExpireAccessTokens()

	assert.Contains(t, h.exec("pets"), "No pets")
	assert.Equal(t, 1, h.api.RefreshCalls())

	h.api.ExpireAccessTokens()
	h.api.RevokeRefreshTokens()
	assert.Contains(t, h.exec("pets reload"), "Error: unauthorized")
	_, ok := h.store.Get()
	assert.False(t, ok)
}
