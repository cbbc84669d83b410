package auth_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-signin"
	"github.com/goliatone/go-signin/persistence"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := persistence.Open(ctx, persistence.Config{
		DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = persistence.Migrate(ctx, db, auth.GetMigrationsFS())
	require.NoError(t, err)

	return db
}

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))
	require.NoError(t, repo.Validate())
	users := repo.Users()

	created, err := users.Register(ctx, &auth.User{
		Email:        "  Ada@Example.com ",
		Name:         " Ada Lovelace ",
		PasswordHash: testPasswordHash,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, "Ada Lovelace", created.Name)

	t.Run("find by email is case insensitive", func(t *testing.T) {
		found, err := users.FindByEmail(ctx, "ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, testPasswordHash, found.PasswordHash)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := users.FindByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)

		_, err = users.FindByEmail(ctx, "")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := users.Register(ctx, &auth.User{Email: "ada@example.com"})
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("linking is idempotent", func(t *testing.T) {
		link := func() error {
			return users.LinkAccount(ctx, &auth.Account{
				UserID:            created.ID,
				Provider:          auth.ProviderGoogle,
				ProviderAccountID: "g-1",
				Type:              auth.AccountTypeOAuth,
			})
		}
		require.NoError(t, link())
		require.NoError(t, link())

		accounts, err := users.AccountsForUser(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, "g-1", accounts[0].ProviderAccountID)
	})

	t.Run("link requires a user", func(t *testing.T) {
		err := users.LinkAccount(ctx, &auth.Account{Provider: auth.ProviderGoogle})
		assert.ErrorIs(t, err, auth.ErrInvalidAccount)
	})
}

func TestRepositoryManager_RunInTx(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))

	var (
		_ repository.Validator          = repo
		_ repository.TransactionManager = repo
	)
	require.NotPanics(t, repo.MustValidate)

	users := repo.Users()

	t.Run("commit keeps the user and its account", func(t *testing.T) {
		var created *auth.User
		err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var err error
			created, err = users.RegisterTx(ctx, tx, &auth.User{Email: "tx@example.com", Name: "Tx User"})
			if err != nil {
				return err
			}
			return users.LinkAccountTx(ctx, tx, &auth.Account{
				UserID:            created.ID,
				Provider:          auth.ProviderGoogle,
				ProviderAccountID: "g-tx",
				Type:              auth.AccountTypeOAuth,
			})
		})
		require.NoError(t, err)

		found, err := users.GetByIdentifier(ctx, "tx@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)

		accounts, err := users.AccountsForUser(ctx, created.ID)
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
	})

	t.Run("rollback discards the user", func(t *testing.T) {
		boom := errors.New("link failed")
		err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := users.RegisterTx(ctx, tx, &auth.User{Email: "gone@example.com"}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = users.FindByEmail(ctx, "gone@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("cancelled context never opens a transaction", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		called := false
		err := repo.RunInTx(cancelled, nil, func(context.Context, bun.Tx) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))
	handler := auth.NewRegisterUserHandler(repo).WithLogger(nopLogger{})

	user, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    "grace@example.com",
		Name:     "Grace Hopper",
		Password: "cobol-forever",
		Verified: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, user.EmailVerifiedAt)
	assert.NoError(t, auth.ComparePasswordAndHash("cobol-forever", user.PasswordHash))

	accounts, err := repo.Users().AccountsForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, auth.ProviderCredentials, accounts[0].Provider)

	t.Run("registered user can sign in", func(t *testing.T) {
		auther := auth.NewAuthenticator(repo.Users(), testConfig()).WithLogger(nopLogger{})

		result, err := auther.SignInWithCredentials(ctx, "grace@example.com", "cobol-forever")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), result.User.ID)
	})

	t.Run("invalid message", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.RegisterUserMessage{Email: "not-an-email", Password: "short"})
		assert.Error(t, err)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.RegisterUserMessage{Email: "grace@example.com", Password: "another-password"})
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := handler.Execute(cancelled, auth.RegisterUserMessage{Email: "late@example.com", Password: "password123"})
		assert.Error(t, err)
	})
}
