//go:build integration

package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	auth "github.com/goliatone/go-signin"
	"github.com/goliatone/go-signin/persistence"
)

func TestPostgresUserStore(t *testing.T) {
	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("signin"),
		pgmodule.WithUsername("signin"),
		pgmodule.WithPassword("signin"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := persistence.Open(ctx, persistence.Config{DSN: dsn})
	require.NoError(t, err)
	defer db.Close()

	applied, err := persistence.Migrate(ctx, db, auth.GetMigrationsFS())
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	users := auth.NewUsersRepository(db)

	created, err := users.Register(ctx, &auth.User{Email: "PG@Example.com", Name: "Pg User"})
	require.NoError(t, err)

	found, err := users.FindByEmail(ctx, "pg@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = users.Register(ctx, &auth.User{Email: "pg@example.com"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)

	account := &auth.Account{
		UserID:            created.ID,
		Provider:          auth.ProviderGoogle,
		ProviderAccountID: "google-sub-1",
		Type:              auth.AccountTypeOAuth,
	}
	require.NoError(t, users.LinkAccount(ctx, account))
	require.NoError(t, users.LinkAccount(ctx, &auth.Account{
		UserID:            created.ID,
		Provider:          auth.ProviderGoogle,
		ProviderAccountID: "google-sub-1",
		Type:              auth.AccountTypeOAuth,
	}))

	accounts, err := users.AccountsForUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}
