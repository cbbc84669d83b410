package social

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-signin"
)

// NonceCookieName binds the state parameter to the browser that started
// the flow.
const NonceCookieName = "oauth_nonce"

// HTTPController serves the OAuth redirect and callback routes.
type HTTPController struct {
	social *Authenticator
	routes *auth.RouteAuthenticator
	logger auth.Logger
}

// RegisterRoutes mounts GET /api/auth/signin/:provider and
// GET /api/auth/callback/:provider on app.
func RegisterRoutes[T any](app router.Router[T], social *Authenticator, routes *auth.RouteAuthenticator, logger auth.Logger) *HTTPController {
	if logger == nil {
		logger = nopLogger{}
	}

	c := &HTTPController{
		social: social,
		routes: routes,
		logger: logger,
	}

	app.Get(SignInPathPrefix+":provider", c.BeginAuth).SetName("auth.oauth.signin")
	app.Get(CallbackPathPrefix+":provider", c.Callback).SetName("auth.oauth.callback")

	return c
}

// BeginAuth redirects to the provider consent screen
func (h *HTTPController) BeginAuth(c router.Context) error {
	cfg := h.routes.Config()
	callbackURL := auth.SafeRedirect(c.Query("callbackUrl"), cfg.GetSuccessRedirect())

	redirect, err := h.social.BeginAuth(c.Context(), c.Param("provider"), callbackURL)
	if err != nil {
		h.logError("oauth sign-in failed to start", err)
		return c.Redirect(h.routes.ErrorRedirect(auth.ErrorCodeOAuthSignin), router.StatusFound)
	}

	c.Cookie(&router.Cookie{
		Name:     NonceCookieName,
		Value:    redirect.Nonce,
		Path:     "/",
		Expires:  time.Now().Add(h.social.state.TTL()),
		HTTPOnly: true,
		Secure:   cfg.GetCookieSecure(),
		SameSite: router.CookieSameSiteLaxMode,
	})

	return c.Redirect(redirect.URL, router.StatusFound)
}

// Callback completes the flow and sets the session cookies
func (h *HTTPController) Callback(c router.Context) error {
	providerID := c.Param("provider")
	nonce := c.Cookies(NonceCookieName)
	h.clearNonce(c)

	if errCode := c.Query("error"); errCode != "" {
		h.logError("provider denied authorization", wrapProviderError(ErrProviderDenied, providerID, "authorize", &ProviderError{
			Provider:    providerID,
			Operation:   "authorize",
			Code:        errCode,
			Description: c.Query("error_description"),
		}))
		return c.Redirect(h.routes.ErrorRedirect(auth.ErrorCodeAccessDenied), router.StatusFound)
	}

	completion, err := h.social.CompleteAuth(c.Context(), providerID, c.Query("code"), c.Query("state"), nonce)
	if err != nil {
		h.logError("oauth callback failed", err)
		code := auth.ErrorCodeOAuthCallback
		if errors.Is(err, auth.ErrAccessDenied) {
			code = auth.ErrorCodeAccessDenied
		}
		return c.Redirect(h.routes.ErrorRedirect(code), router.StatusFound)
	}

	h.routes.SetSession(c, completion.Result)

	target := auth.SafeRedirect(completion.CallbackURL, h.routes.Config().GetSuccessRedirect())
	return c.Redirect(target, router.StatusFound)
}

func (h *HTTPController) clearNonce(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     NonceCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.routes.Config().GetCookieSecure(),
		SameSite: router.CookieSameSiteLaxMode,
	})
}

func (h *HTTPController) logError(msg string, err error) {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		h.logger.Error(msg,
			"error", richErr.Message,
			"text_code", richErr.TextCode,
			"metadata", richErr.Metadata,
		)
		return
	}
	h.logger.Error(msg, "error", err)
}
