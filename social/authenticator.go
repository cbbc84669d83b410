package social

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/oauth2"

	auth "github.com/goliatone/go-signin"
)

const (
	// SignInPathPrefix is where the consent redirect is served
	SignInPathPrefix = "/api/auth/signin/"
	// CallbackPathPrefix is where providers redirect back to
	CallbackPathPrefix = "/api/auth/callback/"
)

// ProviderRegistrar is implemented by authenticators that list their
// sign-in methods.
type ProviderRegistrar interface {
	RegisterProvider(info auth.ProviderInfo)
}

// Authenticator runs the authorization code flow and hands the resulting
// identity to the core authenticator.
type Authenticator struct {
	auther auth.Authenticator
	state  *StateCodec
	logger auth.Logger

	mu        sync.RWMutex
	providers map[string]Provider
}

// Option configures the Authenticator
type Option func(*Authenticator)

// WithProvider registers a provider
func WithProvider(p Provider) Option {
	return func(a *Authenticator) {
		a.Register(p)
	}
}

// WithLogger sets the logger
func WithLogger(logger auth.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator wires the OAuth flow to auther. Providers passed as
// options are also registered on auther when it is a ProviderRegistrar.
func NewAuthenticator(auther auth.Authenticator, state *StateCodec, opts ...Option) *Authenticator {
	a := &Authenticator{
		auther:    auther,
		state:     state,
		logger:    nopLogger{},
		providers: map[string]Provider{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Register adds a provider and advertises it on the core authenticator
func (a *Authenticator) Register(p Provider) {
	if p == nil {
		return
	}

	a.mu.Lock()
	a.providers[p.ID()] = p
	a.mu.Unlock()

	if registrar, ok := a.auther.(ProviderRegistrar); ok {
		registrar.RegisterProvider(auth.ProviderInfo{
			ID:          p.ID(),
			Name:        p.Name(),
			Type:        auth.AccountTypeOAuth,
			SignInURL:   SignInPathPrefix + p.ID(),
			CallbackURL: CallbackPathPrefix + p.ID(),
		})
	}
}

// Provider returns a registered provider
func (a *Authenticator) Provider(id string) (Provider, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.providers[id]
	return p, ok
}

// ProviderIDs returns the registered provider ids in sorted order
func (a *Authenticator) ProviderIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.providers))
	for id := range a.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AuthRedirect is the outcome of BeginAuth.
type AuthRedirect struct {
	URL      string
	Provider string
	// Nonce must be stored in the browser and handed back to CompleteAuth
	Nonce string
	State string
}

// BeginAuth builds the consent redirect for provider. callbackURL is the
// local page to land on after sign-in.
func (a *Authenticator) BeginAuth(ctx context.Context, providerID, callbackURL string) (*AuthRedirect, error) {
	provider, ok := a.Provider(providerID)
	if !ok {
		return nil, ErrProviderNotFound
	}

	state := &State{
		Provider:     providerID,
		CodeVerifier: oauth2.GenerateVerifier(),
		CallbackURL:  callbackURL,
	}

	token, err := a.state.Encode(state)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("oauth flow started", "provider", providerID)

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(token, state.CodeVerifier),
		Provider: providerID,
		Nonce:    state.Nonce,
		State:    token,
	}, nil
}

// Completion is the outcome of CompleteAuth.
type Completion struct {
	Result      *auth.SignInResult
	Profile     *Profile
	CallbackURL string
}

// CompleteAuth validates the returned state against the browser nonce,
// redeems the code and signs the user in.
func (a *Authenticator) CompleteAuth(ctx context.Context, providerID, code, stateToken, nonce string) (*Completion, error) {
	if code == "" || stateToken == "" {
		return nil, ErrMissingCode
	}

	provider, ok := a.Provider(providerID)
	if !ok {
		return nil, ErrProviderNotFound
	}

	state, err := a.state.Decode(stateToken)
	if err != nil {
		return nil, err
	}

	if state.Provider != providerID || nonce == "" || state.Nonce != nonce {
		a.logger.Warn("oauth state mismatch", "provider", providerID, "state_provider", state.Provider)
		return nil, ErrInvalidState
	}

	token, err := provider.Exchange(ctx, code, state.CodeVerifier)
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerID, "exchange", err)
	}

	profile, err := provider.Profile(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrProfileFailed, providerID, "profile", err)
	}

	result, err := a.auther.SignInWithOAuth(ctx,
		auth.AuthUser{
			Email: profile.Email,
			Name:  profile.Name,
			Image: profile.AvatarURL,
		},
		auth.AccountInfo{
			Provider:          providerID,
			Type:              auth.AccountTypeOAuth,
			ProviderAccountID: profile.Subject,
		},
	)
	if err != nil {
		return nil, err
	}

	return &Completion{
		Result:      result,
		Profile:     profile,
		CallbackURL: state.CallbackURL,
	}, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
