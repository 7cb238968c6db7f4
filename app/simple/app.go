package simple

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/quiverhttp/quiver/core/config"
	"github.com/quiverhttp/quiver/core/router"
	"github.com/quiverhttp/quiver/core/server"
	"github.com/quiverhttp/quiver/core/state"
	"github.com/quiverhttp/quiver/middleware"
)

// App bundles a router, an HTTP server, and a shared dependency container
// behind a single lifecycle. Configuration comes from the environment; the
// defaults give a working development setup with request IDs and request
// logging already wired.
type App struct {
	config Config
	router router.Router[*Context]
	server *server.Server
	state  *state.Container
	logger *slog.Logger
}

// AppOption customizes an App before it is assembled.
type AppOption func(*App) error

// NewApp loads configuration from the environment and assembles the
// application. Components not supplied via options are built from config.
func NewApp(opts ...AppOption) (*App, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	app := &App{
		config: cfg,
		state:  state.NewContainer(),
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.LogLevel),
		})).With("app", cfg.AppName)
	}

	if app.router == nil {
		env := cfg.Env
		app.router = router.New(
			router.WithContextFactory(func(w http.ResponseWriter, r *http.Request, params router.Params) *Context {
				return &Context{Context: router.NewContext(w, r, params), env: env}
			}),
			router.WithState[*Context](app.state),
			router.WithLogger[*Context](app.logger),
			router.WithMiddleware(
				middleware.RequestID[*Context](),
				middleware.LoggingWithLogger[*Context](app.logger),
			),
		)
	}

	if app.server == nil {
		s, err := server.NewFromConfig(cfg.Server, server.WithLogger(app.logger))
		if err != nil {
			return nil, err
		}
		app.server = s
	}

	return app, nil
}

// Router returns the application router for route registration.
func (a *App) Router() router.Router[*Context] {
	return a.router
}

// State returns the shared dependency container. Register services here
// before starting the server; handlers receive them through extractors.
func (a *App) State() *state.Container {
	return a.state
}

// Config returns the loaded application configuration.
func (a *App) Config() Config {
	return a.config
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails. Shutdown on cancellation is graceful.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx, a.router)()
}

// WithLogger replaces the default JSON logger.
func WithLogger(logger *slog.Logger) AppOption {
	return func(app *App) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		app.logger = logger
		return nil
	}
}

// WithRouter replaces the default router. The caller is responsible for
// wiring its own context factory and middleware.
func WithRouter(r router.Router[*Context]) AppOption {
	return func(app *App) error {
		if r == nil {
			return errors.New("router cannot be nil")
		}
		app.router = r
		return nil
	}
}

// WithServer replaces the server built from config.
func WithServer(s *server.Server) AppOption {
	return func(app *App) error {
		if s == nil {
			return errors.New("server cannot be nil")
		}
		app.server = s
		return nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
