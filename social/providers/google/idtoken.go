package google

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-signin/social"
)

var validIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (c *idTokenClaims) profile() *social.Profile {
	return userInfo{
		Sub:           c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
		GivenName:     c.GivenName,
		FamilyName:    c.FamilyName,
		Picture:       c.Picture,
	}.profile()
}

// idTokenVerifier checks id_tokens against the Google JWKS. The key set
// is fetched on first use and refreshed in the background.
type idTokenVerifier struct {
	jwksURL  string
	audience string
	client   *http.Client

	mu      sync.Mutex
	keyfunc jwt.Keyfunc
}

func newIDTokenVerifier(jwksURL, audience string, client *http.Client) *idTokenVerifier {
	return &idTokenVerifier{
		jwksURL:  jwksURL,
		audience: audience,
		client:   client,
	}
}

func (v *idTokenVerifier) Verify(ctx context.Context, raw string) (*idTokenClaims, error) {
	if raw == "" {
		return nil, errors.New("token response has no id_token", errors.CategoryAuth)
	}

	kf, err := v.load(ctx)
	if err != nil {
		return nil, err
	}

	claims := &idTokenClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, kf,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "invalid id_token")
	}

	if !validIssuers[claims.Issuer] {
		return nil, errors.New("unexpected id_token issuer", errors.CategoryAuth).
			WithMetadata(map[string]any{"issuer": claims.Issuer})
	}

	return claims, nil
}

func (v *idTokenVerifier) load(ctx context.Context) (jwt.Keyfunc, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.keyfunc != nil {
		return v.keyfunc, nil
	}

	jwks, err := keyfunc.Get(v.jwksURL, keyfunc.Options{
		Ctx:               context.WithoutCancel(ctx),
		Client:            v.client,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load google signing keys")
	}

	v.keyfunc = jwks.Keyfunc
	return v.keyfunc, nil
}
