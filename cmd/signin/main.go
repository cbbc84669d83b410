package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-signin"
	"github.com/goliatone/go-signin/activitymap"
	"github.com/goliatone/go-signin/config"
	"github.com/goliatone/go-signin/metrics"
	"github.com/goliatone/go-signin/middleware/csrf"
	"github.com/goliatone/go-signin/middleware/jwtware"
	"github.com/goliatone/go-signin/persistence"
	"github.com/goliatone/go-signin/social"
	"github.com/goliatone/go-signin/social/providers/github"
	"github.com/goliatone/go-signin/social/providers/google"
)

type App struct {
	config  *config.Config
	bunDB   *bun.DB
	repo    auth.RepositoryManager
	auther  *auth.Auther
	routes  *auth.RouteAuthenticator
	metrics *metrics.Collector
	srv     router.Server[*fiber.App]
	logger  *glog.BaseLogger
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) SetDB(db *bun.DB) {
	a.bunDB = db
}

func (a *App) SetRepository(repo auth.RepositoryManager) {
	a.repo = repo
}

func (a *App) SetLogger(lgr *glog.BaseLogger) *App {
	a.logger = lgr
	return a
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) SetHTTPServer(srv router.Server[*fiber.App]) {
	a.srv = srv
}

func (a *App) SetHTTPAuth(routes *auth.RouteAuthenticator) {
	a.routes = routes
}

type createUserFlags struct {
	enabled  bool
	email    string
	password string
	name     string
	verified bool
}

func main() {
	var cu createUserFlags
	flag.BoolVar(&cu.enabled, "create-user", false, "create a credentials user and exit")
	flag.StringVar(&cu.email, "email", "", "email of the user to create")
	flag.StringVar(&cu.password, "password", "", "password of the user to create")
	flag.StringVar(&cu.name, "name", "", "display name of the user to create")
	flag.BoolVar(&cu.verified, "verified", true, "mark the email as verified")
	flag.Parse()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("signin"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := config.Load()
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			fmt.Fprintln(os.Stderr, richErr.Message)
			fmt.Fprintln(os.Stderr, print.MaybePrettyJSON(richErr.Metadata))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	ctx := context.Background()

	app := &App{config: cfg}
	app.SetLogger(lgr)

	if err := WithPersistence(ctx, app); err != nil {
		app.GetLogger("app").Error("failed to set up persistence", "error", err)
		os.Exit(1)
	}
	defer app.bunDB.Close()

	if cu.enabled {
		if err := CreateUser(ctx, app, cu); err != nil {
			app.GetLogger("app").Error("failed to create user", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithSocialAuth(ctx, app); err != nil {
		panic(err)
	}

	ProtectedRoutes(app)

	go func() {
		if err := app.srv.Serve(cfg.HTTPAddr); err != nil {
			app.GetLogger("http").Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	app.GetLogger("app").Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.GetLogger("http").Error("shutdown failed", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config()

	db, err := persistence.Open(ctx, persistence.Config{
		DSN:   cfg.DatabaseURL,
		Debug: cfg.Debug,
	})
	if err != nil {
		return err
	}

	applied, err := persistence.Migrate(ctx, db, auth.GetMigrationsFS())
	if err != nil {
		_ = db.Close()
		return err
	}
	if len(applied) > 0 {
		app.GetLogger("persistence").Info("applied migrations", "migrations", applied)
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		_ = db.Close()
		return err
	}

	app.SetDB(db)
	app.SetRepository(repo)
	return nil
}

// CreateUser seeds a credentials account, sign-up is not exposed over HTTP
func CreateUser(ctx context.Context, app *App, cu createUserFlags) error {
	handler := auth.NewRegisterUserHandler(app.repo).
		WithLogger(app.GetLogger("auth:cmd"))

	user, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    cu.email,
		Password: cu.password,
		Name:     cu.name,
		Verified: cu.verified,
	})
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			fmt.Println(print.MaybePrettyJSON(richErr))
		}
		return err
	}

	fmt.Printf("created user %s (%s)\n", user.Email, user.ID)
	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:           "signin",
			UnescapePath:      true,
			PassLocalsToViews: true,
			Views:             auth.NewViewEngine(),
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.metrics = metrics.NewCollector(prometheus.DefaultRegisterer)
	srv.Router().Get("/metrics", router.HandlerFromHTTP(metrics.Handler(prometheus.DefaultGatherer))).SetName("metrics.get")

	srv.Router().Get("/", func(c router.Context) error {
		return c.Redirect(app.Config().SignInPage, router.StatusFound)
	}).SetName("home.get")

	app.SetHTTPServer(srv)
	return nil
}

func WithHTTPAuth(_ context.Context, app *App) error {
	cfg := app.Config()

	activity := auth.ActivitySinks{
		app.metrics,
		activitymap.NewSink(app.GetLogger("auth:audit")),
	}

	gate := auth.NewStoreSignInGate(app.repo.Users()).
		WithLogger(app.GetLogger("auth:gate")).
		WithProvisioning(cfg.AllowSignup).
		WithActivitySink(activity)

	app.auther = auth.NewAuthenticator(app.repo.Users(), cfg).
		WithLogger(app.GetLogger("auth:authz")).
		WithActivitySink(activity).
		WithSignInGate(gate)

	routes, err := auth.NewHTTPAuthenticator(app.auther, cfg)
	if err != nil {
		return err
	}
	routes.WithLogger(app.GetLogger("auth:http"))
	routes.ErrorHandler = func(c router.Context, err error) error {
		app.metrics.RecordGateRejection(c.Path())
		return jwtware.DefaultErrorHandler(c, err)
	}
	app.SetHTTPAuth(routes)

	app.srv.Router().Use(routes.SessionProvider())

	limiter := auth.NewSignInLimiter(
		cfg.SignInLimit,
		time.Duration(cfg.SignInLimitWindow)*time.Second,
		func(c router.Context) {
			app.metrics.RecordRateLimited(c.Path())
		},
	)

	csrfKey := sha256.Sum256([]byte(cfg.AuthSecret + ":csrf"))

	auth.RegisterAuthRoutes(app.srv.Router(),
		auth.WithControllerAuther(routes),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithControllerDebug(cfg.Debug),
		auth.WithControllerLimiter(limiter),
		auth.WithCSRF(csrf.Config{
			SecureKey:  csrfKey[:],
			Expiration: time.Hour,
		}),
	)

	return nil
}

func WithSocialAuth(_ context.Context, app *App) error {
	cfg := app.Config()

	opts := []social.Option{social.WithLogger(app.GetLogger("auth:social"))}

	if cfg.GoogleEnabled() {
		opts = append(opts, social.WithProvider(google.New(google.Config{
			ClientID:      cfg.GoogleClientID,
			ClientSecret:  cfg.GoogleClientSecret,
			CallbackURL:   cfg.CallbackURL(google.ProviderID),
			VerifyIDToken: cfg.GoogleVerifyIDToken,
		})))
	} else {
		app.GetLogger("auth:social").Warn("google sign-in disabled, GOOGLE_CLIENT_ID is not set")
	}

	if cfg.GitHubEnabled() {
		opts = append(opts, social.WithProvider(github.New(github.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			CallbackURL:  cfg.CallbackURL(github.ProviderID),
		})))
	}

	sa := social.NewAuthenticator(app.auther, social.NewStateCodec(cfg.AuthSecret, 0), opts...)
	social.RegisterRoutes(app.srv.Router(), sa, app.routes, app.GetLogger("auth:social:http"))

	return nil
}

func ProtectedRoutes(app *App) {
	app.srv.Router().Get("/api/me", func(c router.Context) error {
		claims, ok := auth.GetTokenClaims(c, app.Config().GetContextKey())
		if !ok {
			return jwtware.DefaultErrorHandler(c, auth.ErrNoSession)
		}
		return c.JSON(router.StatusOK, map[string]any{
			"user": claims,
		})
	}, app.routes.ProtectedRoute()).SetName("api.me")
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
