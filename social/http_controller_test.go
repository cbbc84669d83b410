package social

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-signin"
	"github.com/goliatone/go-signin/config"
)

func testConfig() *config.Config {
	return &config.Config{
		AuthSecret:        "session-secret",
		JWTSecret:         "jwt-secret",
		SignInPage:        "/auth/signin",
		ErrorPage:         "/auth/error",
		SuccessRedirect:   "/dashboard",
		SessionCookieName: "session_token",
		TokenCookieName:   "token",
		ContextKey:        "user",
		SigningMethod:     "HS256",
		TokenExpiration:   1,
	}
}

func newControllerApp(t *testing.T, auther *fakeAuther) *fiber.App {
	t.Helper()

	routes, err := auth.NewHTTPAuthenticator(auther, testConfig())
	require.NoError(t, err)

	sa := NewAuthenticator(auther, NewStateCodec("secret", 0), WithProvider(newGoogleStub()))

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return fiber.New()
	})
	RegisterRoutes(srv.Router(), sa, routes, nil)
	return srv.WrappedRouter()
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func beginFlow(t *testing.T, app *fiber.App, query string) (state, nonce string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/signin/google"+query, nil))
	require.NoError(t, err)
	require.Equal(t, router.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "provider.example.com", location.Host)

	nonce = cookieValue(resp, NonceCookieName)
	require.NotEmpty(t, nonce)

	return location.Query().Get("state"), nonce
}

func callback(t *testing.T, app *fiber.App, query url.Values, nonce string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback/google?"+query.Encode(), nil)
	if nonce != "" {
		req.AddCookie(&http.Cookie{Name: NonceCookieName, Value: nonce})
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestControllerFullFlow(t *testing.T) {
	auther := &fakeAuther{}
	app := newControllerApp(t, auther)

	state, nonce := beginFlow(t, app, "?callbackUrl=%2Fsettings")

	resp := callback(t, app, url.Values{"code": {"auth-code"}, "state": {state}}, nonce)
	assert.Equal(t, router.StatusFound, resp.StatusCode)
	assert.Equal(t, "/settings", resp.Header.Get("Location"))
	assert.Equal(t, "session-jwt", cookieValue(resp, "session_token"))
	assert.Equal(t, "access-jwt", cookieValue(resp, "token"))
	assert.Equal(t, "user@example.com", auther.user.Email)
}

func TestControllerIgnoresExternalCallback(t *testing.T) {
	app := newControllerApp(t, &fakeAuther{})

	state, nonce := beginFlow(t, app, "?callbackUrl="+url.QueryEscape("https://evil.example.com"))

	resp := callback(t, app, url.Values{"code": {"auth-code"}, "state": {state}}, nonce)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestControllerUnknownProvider(t *testing.T) {
	app := newControllerApp(t, &fakeAuther{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/signin/myspace", nil))
	require.NoError(t, err)
	assert.Equal(t, router.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/error?error=OAuthSignin", resp.Header.Get("Location"))
}

func TestControllerCallbackErrors(t *testing.T) {
	t.Run("provider denied", func(t *testing.T) {
		app := newControllerApp(t, &fakeAuther{})
		_, nonce := beginFlow(t, app, "")

		resp := callback(t, app, url.Values{"error": {"access_denied"}}, nonce)
		assert.Equal(t, "/auth/error?error=AccessDenied", resp.Header.Get("Location"))
	})

	t.Run("missing nonce cookie", func(t *testing.T) {
		app := newControllerApp(t, &fakeAuther{})
		state, _ := beginFlow(t, app, "")

		resp := callback(t, app, url.Values{"code": {"auth-code"}, "state": {state}}, "")
		assert.Equal(t, "/auth/error?error=OAuthCallback", resp.Header.Get("Location"))
		assert.Empty(t, cookieValue(resp, "session_token"))
	})

	t.Run("sign-in gate denied", func(t *testing.T) {
		app := newControllerApp(t, &fakeAuther{err: auth.ErrAccessDenied})
		state, nonce := beginFlow(t, app, "")

		resp := callback(t, app, url.Values{"code": {"auth-code"}, "state": {state}}, nonce)
		assert.Equal(t, "/auth/error?error=AccessDenied", resp.Header.Get("Location"))
		assert.Empty(t, cookieValue(resp, "session_token"))
	})
}
