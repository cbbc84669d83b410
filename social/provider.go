package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Provider is an OAuth2 authorization code provider.
type Provider interface {
	// ID is the provider identifier used in routes and account records
	// (e.g. "google").
	ID() string

	// Name is the label shown on the sign-in page.
	Name() string

	// AuthCodeURL returns the consent URL. verifier is the PKCE code
	// verifier the provider must challenge.
	AuthCodeURL(state, verifier string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// Profile resolves the signed-in identity for a token.
	Profile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// Profile is the normalized identity returned by a provider.
type Profile struct {
	Subject       string
	Provider      string
	Email         string
	EmailVerified bool
	Name          string
	Username      string
	AvatarURL     string
	Raw           map[string]any
}

// OAuth2 holds the code flow plumbing shared by providers.
type OAuth2 struct {
	ProviderID string
	Config     oauth2.Config
	HTTPClient *http.Client
	// AuthParams are appended to every consent URL
	AuthParams []oauth2.AuthCodeOption
}

// NewOAuth2 builds the shared plumbing. A nil client gets a 10s timeout.
func NewOAuth2(providerID string, cfg oauth2.Config, client *http.Client, params ...oauth2.AuthCodeOption) *OAuth2 {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &OAuth2{
		ProviderID: providerID,
		Config:     cfg,
		HTTPClient: client,
		AuthParams: params,
	}
}

// AuthCodeURL builds the consent URL with an S256 PKCE challenge
func (o *OAuth2) AuthCodeURL(state, verifier string) string {
	opts := append([]oauth2.AuthCodeOption{}, o.AuthParams...)
	if verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return o.Config.AuthCodeURL(state, opts...)
}

// Exchange redeems the authorization code
func (o *OAuth2) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := o.Config.Exchange(o.clientContext(ctx), code, opts...)
	if err != nil {
		return nil, exchangeError(o.ProviderID, err)
	}
	return token, nil
}

// GetJSON calls a provider API with the bearer token and decodes the
// response into out.
func (o *OAuth2) GetJSON(ctx context.Context, token *oauth2.Token, endpoint, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: o.ProviderID, Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ProviderError{Provider: o.ProviderID, Operation: operation, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		perr := parseErrorBody(body)
		perr.Provider = o.ProviderID
		perr.Operation = operation
		perr.Status = resp.StatusCode
		return perr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{
			Provider:    o.ProviderID,
			Operation:   operation,
			Status:      resp.StatusCode,
			Code:        "invalid_response",
			Description: "failed to decode response",
			Err:         err,
		}
	}
	return nil
}

func (o *OAuth2) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
}
