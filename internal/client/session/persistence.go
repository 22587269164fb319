package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/repositories/metadata"
	"github.com/g1appdev/hubbits/internal/dbx"
)

// Keys under which the session lives in the metadata repository.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyIdentity     = "identity"
)

// Saved is the part of the session that survives a restart.
type Saved struct {
	Tokens   models.TokenPair
	Identity *models.Identity
}

// Persistence is the durable side of the store.
type Persistence interface {
	Load(ctx context.Context) (Saved, error)
	SaveTokens(ctx context.Context, tokens models.TokenPair) error
	SaveIdentity(ctx context.Context, identity models.Identity) error
	Clear(ctx context.Context) error
}

// SQLitePersistence keeps the session in the metadata table. Multi-key
// writes share one transaction.
type SQLitePersistence struct {
	db *sql.DB
}

func NewSQLitePersistence(db *sql.DB) *SQLitePersistence {
	return &SQLitePersistence{db: db}
}

func (p *SQLitePersistence) Load(ctx context.Context) (Saved, error) {
	var s Saved
	repo := metadata.NewSQLiteRepository(p.db)

	values, err := repo.List(ctx)
	if err != nil {
		return s, err
	}
	s.Tokens.AccessToken = string(values[KeyAccessToken])
	s.Tokens.RefreshToken = string(values[KeyRefreshToken])

	if raw := values[KeyIdentity]; len(raw) > 0 {
		var id models.Identity
		if err := json.Unmarshal(raw, &id); err != nil {
			return s, fmt.Errorf("decode cached identity: %w", err)
		}
		s.Identity = &id
	}
	return s, nil
}

func (p *SQLitePersistence) SaveTokens(ctx context.Context, tokens models.TokenPair) error {
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := putOrDelete(ctx, repo, KeyAccessToken, tokens.AccessToken); err != nil {
			return err
		}
		return putOrDelete(ctx, repo, KeyRefreshToken, tokens.RefreshToken)
	})
}

func (p *SQLitePersistence) SaveIdentity(ctx context.Context, identity models.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return metadata.NewSQLiteRepository(p.db).Set(ctx, KeyIdentity, raw)
}

func (p *SQLitePersistence) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyIdentity)
	})
}

func putOrDelete(ctx context.Context, repo metadata.Repository, key, value string) error {
	if value == "" {
		return repo.Delete(ctx, key)
	}
	return repo.Set(ctx, key, []byte(value))
}
