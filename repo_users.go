package auth

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user repository. It satisfies UserStore.
type Users interface {
	repository.Repository[*User]
	UserStore

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	LinkAccountTx(ctx context.Context, tx bun.IDB, account *Account) error
	AccountsForUser(ctx context.Context, userID uuid.UUID) ([]*Account, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ UserStore                    = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrUserNotFound
	}

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, storeError(err, "failed to find user by email")
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user must not be nil", errors.CategoryBadInput)
	}

	prepareUserDefaults(user)

	if _, err := a.FindByEmailTx(ctx, tx, user.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	record, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, storeError(err, "failed to register user")
	}
	return record, nil
}

func (a *users) LinkAccount(ctx context.Context, account *Account) error {
	return a.LinkAccountTx(ctx, a.db, account)
}

// LinkAccountTx stores the provider link. Linking the same provider
// account twice is a no-op.
func (a *users) LinkAccountTx(ctx context.Context, tx bun.IDB, account *Account) error {
	if account == nil || account.UserID == uuid.Nil {
		return ErrInvalidAccount
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	_, err := tx.NewInsert().
		Model(account).
		On("CONFLICT (provider, provider_account_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return storeError(err, "failed to link account")
	}
	return nil
}

func (a *users) AccountsForUser(ctx context.Context, userID uuid.UUID) ([]*Account, error) {
	accounts := []*Account{}
	err := a.db.NewSelect().
		Model(&accounts).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError(err, "failed to list accounts")
	}
	return accounts, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
