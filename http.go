package auth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-signin/middleware/jwtware"
)

const (
	// SessionLocalsKey holds the SessionClaims of the current request
	SessionLocalsKey = "session"
	// CurrentUserLocalsKey holds the SessionUser for templates
	CurrentUserLocalsKey = "current_user"
)

type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	// ErrorHandler handles rejections from ProtectedRoute
	ErrorHandler router.ErrorHandler
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator must not be nil", errors.CategoryInternal)
	}

	cookieDuration := time.Duration(defaultTokenExpiration) * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	return &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
		ErrorHandler:   jwtware.DefaultErrorHandler,
	}, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = normalizeLogger(logger)
	return a
}

func (a *RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Authenticator returns the wrapped authenticator
func (a *RouteAuthenticator) Authenticator() Authenticator {
	return a.auth
}

// Config returns the auth configuration
func (a *RouteAuthenticator) Config() Config {
	return a.cfg
}

// ProtectedRoute guards API handlers with the access token cookie. Every
// rejection gets the same 401 response.
func (a *RouteAuthenticator) ProtectedRoute(listeners ...jwtware.ValidationListener) router.MiddlewareFunc {
	options := []jwt.ParserOption{}
	if iss := a.cfg.GetIssuer(); iss != "" {
		options = append(options, jwt.WithIssuer(iss))
	}
	if aud := a.cfg.GetAudience(); len(aud) > 0 {
		options = append(options, jwt.WithAudience(aud...))
	}

	alg := a.cfg.GetSigningMethod()
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}

	return jwtware.New(jwtware.Config{
		ErrorHandler: a.ErrorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(a.cfg.GetSigningKey()),
			JWTAlg: alg,
		},
		ContextKey:          a.cfg.GetContextKey(),
		TokenLookup:         a.cfg.GetTokenLookup(),
		Claims:              NewTokenClaims,
		ParserOptions:       options,
		ContextEnricher:     ClaimsContextEnricher,
		ValidationListeners: listeners,
	})
}

// ClaimsContextEnricher copies validated token claims into the request context
func ClaimsContextEnricher(ctx context.Context, claims jwt.Claims) context.Context {
	if tc, ok := claims.(*TokenClaims); ok {
		return WithClaimsContext(ctx, tc)
	}
	return ctx
}

// SignIn verifies credentials and sets the session cookies
func (a *RouteAuthenticator) SignIn(c router.Context, creds Credentials) (*SignInResult, error) {
	result, err := a.auth.SignInWithCredentials(c.Context(), creds.Email, creds.Password)
	if err != nil {
		a.Logger.Info("credentials sign-in rejected", "error", ErrorMessage(err))
		return nil, err
	}

	a.SetSession(c, result)
	return result, nil
}

// SetSession writes the session cookie and, when present, the API token cookie
func (a *RouteAuthenticator) SetSession(c router.Context, result *SignInResult) {
	if result == nil {
		return
	}

	a.setCookie(c, a.cfg.GetSessionCookieName(), result.SessionToken, a.cookieDuration)
	if result.AccessToken != "" {
		a.setCookie(c, a.cfg.GetTokenCookieName(), result.AccessToken, a.cookieDuration)
	}
}

// Logout clears both auth cookies
func (a *RouteAuthenticator) Logout(c router.Context) {
	a.cookieDel(c, a.cfg.GetSessionCookieName())
	a.cookieDel(c, a.cfg.GetTokenCookieName())
}

// SessionProvider resolves the session cookie on every request. Requests
// without a valid session continue unauthenticated.
func (a *RouteAuthenticator) SessionProvider() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			raw := c.Cookies(a.cfg.GetSessionCookieName())
			if raw == "" {
				return c.Next()
			}

			session, err := a.auth.SessionFromToken(raw)
			if err != nil {
				a.Logger.Debug("discarding invalid session cookie", "error", ErrorMessage(err), "path", c.Path())
				a.cookieDel(c, a.cfg.GetSessionCookieName())
				return c.Next()
			}

			c.Locals(SessionLocalsKey, session)
			c.Locals(CurrentUserLocalsKey, session.User)
			c.SetContext(WithSession(c.Context(), session))

			return c.Next()
		}
	}
}

// RequireSession redirects requests without a session to the sign-in
// page, keeping the requested URL as callbackUrl.
func (a *RouteAuthenticator) RequireSession() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if _, ok := GetSession(c); ok {
				return c.Next()
			}

			target := a.cfg.GetSignInPage() + "?callbackUrl=" + url.QueryEscape(c.OriginalURL())
			a.Logger.Debug("session required, redirecting", "path", c.OriginalURL())
			return c.Redirect(target, router.StatusFound)
		}
	}
}

// GetSession returns the session resolved by SessionProvider
func GetSession(c router.Context) (SessionClaims, bool) {
	session, ok := c.Locals(SessionLocalsKey).(SessionClaims)
	return session, ok
}

// GetTokenClaims returns the claims resolved by ProtectedRoute
func GetTokenClaims(c router.Context, key string) (*TokenClaims, bool) {
	if key == "" {
		key = "user"
	}
	claims, ok := c.Locals(key).(*TokenClaims)
	return claims, ok && claims != nil
}

// SafeRedirect returns target when it is a local path, def otherwise
func SafeRedirect(target, def string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return def
	}
	return target
}

// ErrorRedirect builds the error page URL for an error code
func (a *RouteAuthenticator) ErrorRedirect(code string) string {
	return a.cfg.GetErrorPage() + "?error=" + url.QueryEscape(code)
}

func (a *RouteAuthenticator) logRichError(msg string, err error) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		a.Logger.Error(msg, "error", err)
		return
	}
	a.Logger.Error(msg,
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)
}

func (a *RouteAuthenticator) setCookie(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: router.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: router.CookieSameSiteLaxMode,
	})
}
