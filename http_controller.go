package auth

import (
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-signin/middleware/csrf"
)

// Error codes used in the error page query string
const (
	ErrorCodeAccessDenied      = "AccessDenied"
	ErrorCodeOAuthCallback     = "OAuthCallback"
	ErrorCodeOAuthSignin       = "OAuthSignin"
	ErrorCodeCredentialsSignin = "CredentialsSignin"
	ErrorCodeConfiguration     = "Configuration"
)

var errorPageMessages = map[string]string{
	ErrorCodeAccessDenied:      "You do not have permission to sign in.",
	ErrorCodeOAuthCallback:     "Try signing in with a different account.",
	ErrorCodeOAuthSignin:       "Try signing in with a different account.",
	ErrorCodeCredentialsSignin: "Sign in failed. Check the details you provided are correct.",
	ErrorCodeConfiguration:     "There is a problem with the server configuration.",
}

// ErrorPageMessage returns the message shown for an error code
func ErrorPageMessage(code string) string {
	if msg, ok := errorPageMessages[code]; ok {
		return msg
	}
	return "Unable to sign in."
}

// RegisterAuthRoutes mounts the sign-in pages and the auth API on app
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	post := func(mw ...router.MiddlewareFunc) []router.MiddlewareFunc {
		if controller.Limiter != nil {
			mw = append(mw, controller.Limiter)
		}
		return mw
	}

	form := func(mw ...router.MiddlewareFunc) []router.MiddlewareFunc {
		return append(append([]router.MiddlewareFunc{}, controller.FormMiddleware...), mw...)
	}

	app.Get(controller.Routes.SignIn, controller.LoginShow, form()...).SetName("sign-in.get")
	app.Post(controller.Routes.SignIn, controller.LoginPost, form(post()...)...).SetName("sign-in.post")
	app.Get(controller.Routes.Error, controller.ErrorShow).SetName("auth-error.get")

	app.Get(controller.Routes.Providers, controller.ProvidersShow).SetName("auth-providers.get")
	app.Get(controller.Routes.Session, controller.SessionShow).SetName("auth-session.get")
	app.Post(controller.Routes.CredentialsCallback, controller.CredentialsCallback, form(post()...)...).SetName("auth-credentials.post")
	app.Get(controller.Routes.SignOut, controller.SignOut).SetName("sign-out.get")
	app.Post(controller.Routes.SignOut, controller.SignOut).SetName("sign-out.post")

	if len(controller.FormMiddleware) > 0 {
		app.Get(controller.Routes.CSRF, csrf.TokenHandler(controller.CSRFContextKey), form()...).SetName("auth-csrf.get")
	}

	app.Get(controller.Routes.Dashboard, controller.DashboardShow, controller.Auther.RequireSession()).SetName("dashboard.get")

	return controller
}

type AuthControllerRoutes struct {
	SignIn              string
	Error               string
	Dashboard           string
	Providers           string
	Session             string
	CredentialsCallback string
	SignOut             string
	CSRF                string
}

type AuthControllerViews struct {
	SignIn    string
	Error     string
	Dashboard string
}

type AuthController struct {
	Debug          bool
	Logger         Logger
	Routes         *AuthControllerRoutes
	Views          *AuthControllerViews
	Auther         *RouteAuthenticator
	Limiter        router.MiddlewareFunc
	FormMiddleware []router.MiddlewareFunc
	// CSRFContextKey is the locals key the form middleware stores its token under
	CSRFContextKey string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerAuther(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithControllerLimiter rate limits the POST sign-in endpoints
func WithControllerLimiter(mw router.MiddlewareFunc) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Limiter = mw
		return c
	}
}

// WithFormMiddleware runs mw before the sign-in form and the credentials
// callback, e.g. CSRF protection.
func WithFormMiddleware(mw ...router.MiddlewareFunc) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.FormMiddleware = append(c.FormMiddleware, mw...)
		return c
	}
}

// WithCSRF protects the sign-in form and the credentials callback and
// serves the token to JSON clients on Routes.CSRF.
func WithCSRF(cfg csrf.Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if cfg.ContextKey == "" {
			cfg.ContextKey = csrf.DefaultContextKey
		}
		c.CSRFContextKey = cfg.ContextKey
		c.FormMiddleware = append(c.FormMiddleware, csrf.New(cfg))
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Dashboard:           "/dashboard",
			Providers:           "/api/auth/providers",
			Session:             "/api/auth/session",
			CredentialsCallback: "/api/auth/callback/credentials",
			SignOut:             "/api/auth/signout",
			CSRF:                "/api/auth/csrf",
		},
		CSRFContextKey: csrf.DefaultContextKey,
		Views: &AuthControllerViews{
			SignIn:    "login",
			Error:     "error",
			Dashboard: "dashboard",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Routes.SignIn == "" {
		c.Routes.SignIn = c.Auther.Config().GetSignInPage()
	}
	if c.Routes.Error == "" {
		c.Routes.Error = c.Auther.Config().GetErrorPage()
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email       string `form:"email" json:"email"`
	Password    string `form:"password" json:"password"`
	CallbackURL string `form:"callbackUrl" json:"callbackUrl"`
}

// Validate only checks presence; credential checks happen on the server
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("Email is required")),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
	)
}

// Credentials returns the submitted email/password pair
func (r LoginRequest) Credentials() Credentials {
	return Credentials{Email: r.Email, Password: r.Password}
}

func (a *AuthController) LoginShow(c router.Context) error {
	if _, ok := GetSession(c); ok {
		return c.Redirect(a.successRedirect(c.Query("callbackUrl")), router.StatusFound)
	}

	errMsg := ""
	if code := c.Query("error"); code != "" {
		errMsg = ErrorPageMessage(code)
	}

	return c.Render(a.Views.SignIn, a.loginContext(c, LoginRequest{CallbackURL: c.Query("callbackUrl")}, errMsg, nil))
}

func (a *AuthController) LoginPost(c router.Context) error {
	payload := LoginRequest{}

	if err := c.Bind(&payload); err != nil {
		a.Logger.Warn("sign-in form could not be parsed", "error", err)
		return c.Status(router.StatusBadRequest).Render(a.Views.SignIn, a.loginContext(c, payload, "Invalid request", nil))
	}

	if err := payload.Validate(); err != nil {
		return c.Status(router.StatusBadRequest).Render(a.Views.SignIn, a.loginContext(c, payload, "", validationMessages(err)))
	}

	if a.Debug {
		a.Logger.Debug("sign-in form", "payload", print.MaybePrettyJSON(map[string]any{
			"email":       payload.Email,
			"callbackUrl": payload.CallbackURL,
		}))
	}

	if _, err := a.Auther.SignIn(c, payload.Credentials()); err != nil {
		status := ErrorStatus(err, router.StatusUnauthorized)
		if IsStoreError(err) {
			a.Auther.logRichError("sign-in failed", err)
		}
		return c.Status(status).Render(a.Views.SignIn, a.loginContext(c, payload, ErrorMessage(err), nil))
	}

	return c.Redirect(a.successRedirect(payload.CallbackURL), router.StatusSeeOther)
}

func (a *AuthController) ErrorShow(c router.Context) error {
	code := c.Query("error")
	return c.Render(a.Views.Error, router.ViewContext{
		"code":       code,
		"message":    ErrorPageMessage(code),
		"signInPage": a.Routes.SignIn,
	})
}

func (a *AuthController) DashboardShow(c router.Context) error {
	session, _ := GetSession(c)
	return c.Render(a.Views.Dashboard, router.ViewContext{
		"user":    session.User,
		"expires": session.Expires.Format(time.RFC1123),
		"signOut": a.Routes.SignOut,
	})
}

// ProvidersShow lists the configured sign-in methods keyed by id
func (a *AuthController) ProvidersShow(c router.Context) error {
	out := map[string]ProviderInfo{}
	for _, p := range a.Auther.Authenticator().Providers() {
		out[p.ID] = p
	}
	return c.JSON(router.StatusOK, out)
}

// SessionShow returns the current session or an empty object
func (a *AuthController) SessionShow(c router.Context) error {
	session, ok := GetSession(c)
	if !ok {
		return c.JSON(router.StatusOK, map[string]any{})
	}
	return c.JSON(router.StatusOK, session)
}

// CredentialsCallback is the JSON variant of the sign-in form
func (a *AuthController) CredentialsCallback(c router.Context) error {
	payload := LoginRequest{}
	if err := c.Bind(&payload); err != nil {
		return c.JSON(router.StatusBadRequest, map[string]any{
			"ok":     false,
			"status": router.StatusBadRequest,
			"error":  "Invalid request",
			"url":    nil,
		})
	}

	if _, err := a.Auther.SignIn(c, payload.Credentials()); err != nil {
		status := ErrorStatus(err, router.StatusUnauthorized)
		if IsStoreError(err) {
			a.Auther.logRichError("credentials callback failed", err)
		}
		return c.JSON(status, map[string]any{
			"ok":     false,
			"status": status,
			"error":  ErrorMessage(err),
			"url":    nil,
		})
	}

	return c.JSON(router.StatusOK, map[string]any{
		"ok":     true,
		"status": router.StatusOK,
		"error":  nil,
		"url":    a.successRedirect(payload.CallbackURL),
	})
}

func (a *AuthController) SignOut(c router.Context) error {
	if session, ok := GetSession(c); ok {
		if recorder, ok := a.Auther.Authenticator().(signOutRecorder); ok {
			recorder.SignOut(c.Context(), session)
		}
	}
	a.Auther.Logout(c)

	if c.Method() == string(router.POST) {
		return c.Redirect(a.Routes.SignIn, router.StatusSeeOther)
	}
	return c.Redirect(a.Routes.SignIn, router.StatusFound)
}

func (a *AuthController) successRedirect(callbackURL string) string {
	return SafeRedirect(callbackURL, a.Auther.Config().GetSuccessRedirect())
}

// loginContext only links providers that are registered
func (a *AuthController) loginContext(c router.Context, payload LoginRequest, errMsg string, fieldErrors map[string]string) router.ViewContext {
	googleURL := ""
	githubURL := ""
	for _, p := range a.Auther.Authenticator().Providers() {
		switch p.ID {
		case ProviderGoogle:
			googleURL = p.SignInURL
			if googleURL == "" {
				googleURL = "/api/auth/signin/" + ProviderGoogle
			}
		case "github":
			githubURL = p.SignInURL
		}
	}

	if payload.CallbackURL != "" {
		if googleURL != "" {
			googleURL = withCallbackURL(googleURL, payload.CallbackURL)
		}
		if githubURL != "" {
			githubURL = withCallbackURL(githubURL, payload.CallbackURL)
		}
	}

	if fieldErrors == nil {
		fieldErrors = map[string]string{}
	}

	return router.ViewContext{
		"email":       payload.Email,
		"callbackUrl": payload.CallbackURL,
		"error":       errMsg,
		"validation":  fieldErrors,
		"googleUrl":   googleURL,
		"githubUrl":   githubURL,
		"csrf":        csrf.Token(c, a.CSRFContextKey),
		"action":      a.Routes.SignIn,
	}
}

func withCallbackURL(target, callbackURL string) string {
	return target + "?callbackUrl=" + url.QueryEscape(callbackURL)
}

func validationMessages(err error) map[string]string {
	out := map[string]string{}
	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			if fieldErr != nil {
				out[field] = fieldErr.Error()
			}
		}
		return out
	}
	out["form"] = err.Error()
	return out
}
