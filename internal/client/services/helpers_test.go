package services

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/g1appdev/hubbits/internal/apitest"
	"github.com/g1appdev/hubbits/internal/client/client"
	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/session"
	"github.com/stretchr/testify/require"
)

// env wires a client stack against a fake API.
type env struct {
	api   *apitest.Server
	srv   *httptest.Server
	store *session.Store
	hc    *client.HTTPClient
	auth  *AuthService
	alice models.User
	admin models.User
}

func newEnv(t *testing.T, opts ...apitest.Option) *env {
	t.Helper()
	ctx := context.Background()

	api := apitest.New(opts...)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	alice, err := api.AddUser(models.User{Username: "alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Doe"}, "secret12")
	require.NoError(t, err)
	admin, err := api.AddUser(models.User{Username: "root", Email: "root@example.com", Role: string(models.RoleAdmin)}, "rootroot")
	require.NoError(t, err)

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "hubbits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := session.New(session.NewSQLitePersistence(db))
	require.NoError(t, store.Init(ctx, nil))

	hc, err := client.New(srv.URL, store)
	require.NoError(t, err)

	return &env{
		api:   api,
		srv:   srv,
		store: store,
		hc:    hc,
		auth:  NewAuthService(hc, store, nil),
		alice: alice,
		admin: admin,
	}
}

func (e *env) login(t *testing.T, username, password string) models.Identity {
	t.Helper()
	id, err := e.auth.Login(context.Background(), username, []byte(password))
	require.NoError(t, err)
	return id
}
