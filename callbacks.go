package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SignInGate decides whether a sign-in attempt may proceed.
type SignInGate interface {
	Allow(ctx context.Context, user AuthUser, account AccountInfo) bool
}

// SignInGateFunc adapts a function to the SignInGate interface.
type SignInGateFunc func(ctx context.Context, user AuthUser, account AccountInfo) bool

// Allow implements SignInGate.
func (f SignInGateFunc) Allow(ctx context.Context, user AuthUser, account AccountInfo) bool {
	if f == nil {
		return true
	}
	return f(ctx, user, account)
}

// TokenCallback enriches the token before it is signed. user is nil
// when the token is being re-read for an existing session.
type TokenCallback func(token *TokenClaims, user *AuthUser) *TokenClaims

// SessionCallback shapes the client visible session from the token.
type SessionCallback func(session SessionClaims, token *TokenClaims) SessionClaims

// Callbacks bundles the sign-in lifecycle hooks
type Callbacks struct {
	SignIn  SignInGate
	Token   TokenCallback
	Session SessionCallback
}

func normalizeCallbacks(c Callbacks, store UserStore, logger Logger) Callbacks {
	if c.SignIn == nil {
		c.SignIn = NewStoreSignInGate(store).WithLogger(logger)
	}
	if c.Token == nil {
		c.Token = DefaultTokenCallback
	}
	if c.Session == nil {
		c.Session = DefaultSessionCallback
	}
	return c
}

// DefaultTokenCallback copies the user id and email onto the token when
// a user is available. Without a user the token is returned unchanged.
func DefaultTokenCallback(token *TokenClaims, user *AuthUser) *TokenClaims {
	if token == nil {
		token = &TokenClaims{}
	}
	if user == nil {
		return token
	}

	token.UID = user.ID
	token.Subject = user.ID
	token.Email = user.Email
	if user.Name != "" {
		token.Name = user.Name
	}
	if user.Image != "" {
		token.Picture = user.Image
	}
	return token
}

// DefaultSessionCallback copies id and email from the token into the
// session user.
func DefaultSessionCallback(session SessionClaims, token *TokenClaims) SessionClaims {
	if token == nil {
		return session
	}

	session.User.ID = token.UserID()
	session.User.Email = token.Email
	if token.Name != "" {
		session.User.Name = token.Name
	}
	if token.Picture != "" {
		session.User.Image = token.Picture
	}
	if exp := token.Expires(); !exp.IsZero() {
		session.Expires = exp
	}
	return session
}

// StoreSignInGate allows credentials sign-ins unconditionally. OAuth
// sign-ins need an email; the store is checked for an existing user and
// a missing user is only created when provisioning is enabled.
type StoreSignInGate struct {
	store     UserStore
	provision bool
	logger    Logger
	sink      ActivitySink
}

// NewStoreSignInGate returns a gate that does not provision users.
func NewStoreSignInGate(store UserStore) *StoreSignInGate {
	return &StoreSignInGate{
		store:  store,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

func (g *StoreSignInGate) WithLogger(logger Logger) *StoreSignInGate {
	g.logger = normalizeLogger(logger)
	return g
}

// WithProvisioning enables creating a user for first time OAuth sign-ins
func (g *StoreSignInGate) WithProvisioning(enabled bool) *StoreSignInGate {
	g.provision = enabled
	return g
}

func (g *StoreSignInGate) WithActivitySink(sink ActivitySink) *StoreSignInGate {
	g.sink = normalizeActivitySink(sink)
	return g
}

// Allow implements SignInGate.
func (g *StoreSignInGate) Allow(ctx context.Context, user AuthUser, account AccountInfo) bool {
	if !account.IsOAuth() {
		return true
	}

	email := NormalizeEmail(user.Email)
	if email == "" {
		g.logger.Warn("oauth sign-in without email", "provider", account.Provider)
		return false
	}

	existing, err := g.store.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		g.logger.Error("sign-in gate store lookup failed", "provider", account.Provider, "email", email, "error", err)
		return false
	}

	if err == nil && existing != nil {
		g.logger.Debug("oauth sign-in for existing user", "provider", account.Provider, "email", email)
		if g.provision {
			g.linkExisting(ctx, existing, account)
		}
		return true
	}

	if !g.provision {
		g.logger.Info("oauth sign-in for unknown user", "provider", account.Provider, "email", email)
		return true
	}

	if err := g.provisionUser(ctx, email, user, account); err != nil {
		g.logger.Error("failed to provision oauth user", "provider", account.Provider, "email", email, "error", err)
		return false
	}

	return true
}

// provisionUser creates the user and links the provider account. Losing
// the insert race to a concurrent first sign-in links the winner's record.
func (g *StoreSignInGate) provisionUser(ctx context.Context, email string, user AuthUser, account AccountInfo) error {
	now := time.Now()
	record, err := g.store.Register(ctx, &User{
		Email:           email,
		Name:            user.Name,
		Image:           user.Image,
		EmailVerifiedAt: &now,
	})

	if errors.Is(err, ErrEmailTaken) {
		existing, findErr := g.store.FindByEmail(ctx, email)
		if findErr != nil || existing == nil {
			return errors.Join(err, findErr)
		}
		g.logger.Debug("oauth user created concurrently", "provider", account.Provider, "email", email)
		g.linkExisting(ctx, existing, account)
		return nil
	}

	if err != nil {
		return err
	}

	if err := g.store.LinkAccount(ctx, newProviderAccount(record, account)); err != nil {
		return err
	}

	recordActivity(ctx, g.sink, g.logger, ActivityEvent{
		EventType: ActivityEventUserCreated,
		UserID:    record.ID.String(),
		Email:     email,
		Provider:  account.Provider,
	})

	return nil
}

// linkExisting links account to a user that already exists. Failures are
// logged, the user keeps access.
func (g *StoreSignInGate) linkExisting(ctx context.Context, existing *User, account AccountInfo) {
	if err := g.store.LinkAccount(ctx, newProviderAccount(existing, account)); err != nil {
		g.logger.Warn("failed to link provider account", "provider", account.Provider, "user_id", existing.ID.String(), "error", err)
	}
}

func newProviderAccount(user *User, account AccountInfo) *Account {
	return &Account{
		ID:                uuid.New(),
		UserID:            user.ID,
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		Type:              account.Type,
	}
}
