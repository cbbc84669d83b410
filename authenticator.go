package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// SignInResult is produced by a successful sign-in
type SignInResult struct {
	User    AuthUser
	Account AccountInfo
	Claims  *TokenClaims
	Session SessionClaims
	// SessionToken is signed with the session secret
	SessionToken string
	// AccessToken is signed with the API signing key and is checked by
	// protected API routes. Empty when no signing key is configured.
	AccessToken string
}

type Auther struct {
	store           UserStore
	strategy        *CredentialStrategy
	sessions        TokenService
	access          TokenService
	callbacks       Callbacks
	logger          Logger
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator

	mu        sync.RWMutex
	providers []ProviderInfo
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store UserStore, opts Config) *Auther {
	a := &Auther{
		store:           store,
		strategy:        NewCredentialStrategy(store),
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
		providers: []ProviderInfo{{
			ID:   ProviderCredentials,
			Name: "Credentials",
			Type: AccountTypeCredentials,
		}},
	}

	a.sessions = NewTokenService(
		[]byte(opts.GetSessionSecret()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		a.logger,
	).WithSigningMethod(opts.GetSigningMethod())

	if key := opts.GetSigningKey(); key != "" {
		a.access = NewTokenService(
			[]byte(key),
			opts.GetTokenExpiration(),
			opts.GetIssuer(),
			opts.GetAudience(),
			a.logger,
		).WithSigningMethod(opts.GetSigningMethod())
	}

	a.callbacks = normalizeCallbacks(Callbacks{}, store, a.logger)

	return a
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	s.strategy.WithLogger(s.logger)
	if gate, ok := s.callbacks.SignIn.(*StoreSignInGate); ok {
		gate.WithLogger(s.logger)
	}
	for _, service := range []TokenService{s.sessions, s.access} {
		if impl, ok := service.(*TokenServiceImpl); ok && impl != nil {
			impl.WithLogger(s.logger)
		}
	}
	return s
}

// WithCallbacks replaces the lifecycle hooks. Nil hooks keep their defaults.
func (s *Auther) WithCallbacks(callbacks Callbacks) *Auther {
	s.callbacks = normalizeCallbacks(callbacks, s.store, s.logger)
	return s
}

// WithSignInGate replaces only the sign-in gate
func (s *Auther) WithSignInGate(gate SignInGate) *Auther {
	callbacks := s.callbacks
	callbacks.SignIn = gate
	return s.WithCallbacks(callbacks)
}

// WithPasswordAuthenticator replaces the password hasher used by the
// credentials strategy.
func (s *Auther) WithPasswordAuthenticator(p PasswordAuthenticator) *Auther {
	s.strategy.WithPasswordAuthenticator(p)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching tokens.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// WithTokenServices overrides the session and access token services.
// A nil access service disables the API token.
func (s *Auther) WithTokenServices(sessions, access TokenService) *Auther {
	if sessions != nil {
		s.sessions = sessions
	}
	s.access = access
	return s
}

// SessionTokens returns the service that signs session cookies
func (s *Auther) SessionTokens() TokenService {
	return s.sessions
}

// AccessTokens returns the service that signs API tokens, nil if disabled
func (s *Auther) AccessTokens() TokenService {
	return s.access
}

// RegisterProvider adds a sign-in method to the list returned by Providers.
// Registering an existing id replaces it.
func (s *Auther) RegisterProvider(info ProviderInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.providers {
		if p.ID == info.ID {
			s.providers[i] = info
			return
		}
	}
	s.providers = append(s.providers, info)
}

// Providers returns the configured sign-in methods, credentials first
func (s *Auther) Providers() []ProviderInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ProviderInfo, len(s.providers))
	copy(out, s.providers)
	return out
}

// HasProvider reports whether a sign-in method is registered
func (s *Auther) HasProvider(id string) bool {
	for _, p := range s.Providers() {
		if p.ID == id {
			return true
		}
	}
	return false
}

// SignInWithCredentials verifies email and password and issues tokens.
func (s *Auther) SignInWithCredentials(ctx context.Context, email, password string) (*SignInResult, error) {
	result, err := s.strategy.Authorize(ctx, Credentials{Email: email, Password: password})
	if err != nil {
		s.logger.Error("credentials sign-in store error", "error", err)
		s.emit(ctx, ActivityEventSignInFailure, ActivityEvent{
			Email:    NormalizeEmail(email),
			Provider: ProviderCredentials,
			Reason:   "store_error",
		})
		return nil, err
	}

	if !result.OK() {
		s.emit(ctx, ActivityEventSignInFailure, ActivityEvent{
			Email:    NormalizeEmail(email),
			Provider: ProviderCredentials,
			Reason:   result.Outcome.String(),
		})
		return nil, result.Err()
	}

	user := result.User.AuthUser()
	return s.complete(ctx, user, CredentialsAccount(user.ID))
}

// SignInWithOAuth runs the sign-in gate for a provider profile and
// issues tokens. A rejected attempt returns ErrAccessDenied.
func (s *Auther) SignInWithOAuth(ctx context.Context, user AuthUser, account AccountInfo) (*SignInResult, error) {
	if err := account.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, ErrInvalidAccount.Message).
			WithTextCode(TextCodeInvalidAccount).
			WithCode(errors.CodeBadRequest)
	}

	user.Email = NormalizeEmail(user.Email)

	if !s.callbacks.SignIn.Allow(ctx, user, account) {
		s.emit(ctx, ActivityEventSignInDenied, ActivityEvent{
			Email:    user.Email,
			Provider: account.Provider,
			Reason:   "gate_rejected",
		})
		return nil, ErrAccessDenied
	}

	user = s.resolveOAuthUser(ctx, user, account)

	return s.finish(ctx, user, account)
}

// SessionFromToken validates a session token and returns the session
// the session hook produces for it.
func (s *Auther) SessionFromToken(raw string) (SessionClaims, error) {
	if raw == "" {
		return SessionClaims{}, ErrNoSession
	}

	claims, err := s.sessions.Validate(raw)
	if err != nil {
		return SessionClaims{}, err
	}

	claims = s.callbacks.Token(claims, nil)
	return s.callbacks.Session(SessionClaims{}, claims), nil
}

// SignOut records the end of a session. Tokens are stateless so there is
// nothing to revoke.
func (s *Auther) SignOut(ctx context.Context, session SessionClaims) {
	s.emit(ctx, ActivityEventSignOut, ActivityEvent{
		UserID: session.User.ID,
		Email:  session.User.Email,
	})
}

type signOutRecorder interface {
	SignOut(ctx context.Context, session SessionClaims)
}

func (s *Auther) complete(ctx context.Context, user AuthUser, account AccountInfo) (*SignInResult, error) {
	if !s.callbacks.SignIn.Allow(ctx, user, account) {
		s.emit(ctx, ActivityEventSignInDenied, ActivityEvent{
			UserID:   user.ID,
			Email:    user.Email,
			Provider: account.Provider,
			Reason:   "gate_rejected",
		})
		return nil, ErrAccessDenied
	}
	return s.finish(ctx, user, account)
}

func (s *Auther) finish(ctx context.Context, user AuthUser, account AccountInfo) (*SignInResult, error) {
	claims := s.sessions.NewClaims()
	claims.Provider = account.Provider
	claims = s.callbacks.Token(claims, &user)

	if err := decorateClaims(ctx, s.claimsDecorator, user, claims); err != nil {
		s.logger.Error("claims decorator failed", "provider", account.Provider, "error", err)
		s.emit(ctx, ActivityEventSignInFailure, ActivityEvent{
			UserID:   user.ID,
			Email:    user.Email,
			Provider: account.Provider,
			Reason:   "claims_decorator",
		})
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decorate token claims")
	}

	sessionToken, err := s.sessions.SignClaims(claims)
	if err != nil {
		s.logger.Error("failed to sign session token", "error", err)
		return nil, err
	}

	result := &SignInResult{
		User:         user,
		Account:      account,
		Claims:       claims,
		Session:      s.callbacks.Session(SessionClaims{}, claims),
		SessionToken: sessionToken,
	}

	if s.access != nil {
		if result.AccessToken, err = s.access.SignClaims(claims); err != nil {
			s.logger.Error("failed to sign access token", "error", err)
			return nil, err
		}
	}

	s.emit(ctx, ActivityEventSignInSuccess, ActivityEvent{
		UserID:   user.ID,
		Email:    user.Email,
		Provider: account.Provider,
	})

	return result, nil
}

// resolveOAuthUser maps the provider profile onto a stored user when one
// exists. Otherwise the user id is derived from the provider account.
func (s *Auther) resolveOAuthUser(ctx context.Context, user AuthUser, account AccountInfo) AuthUser {
	stored, err := s.store.FindByEmail(ctx, user.Email)
	if err == nil && stored != nil {
		resolved := stored.AuthUser()
		if resolved.Name == "" {
			resolved.Name = user.Name
		}
		if resolved.Image == "" {
			resolved.Image = user.Image
		}
		return resolved
	}

	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.logger.Warn("failed to resolve oauth user", "provider", account.Provider, "error", err)
	}

	user.ID = account.Provider + ":" + account.ProviderAccountID
	return user
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, event ActivityEvent) {
	event.EventType = eventType
	recordActivity(ctx, s.activitySink, s.logger, event)
}
