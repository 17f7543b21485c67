package application

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alx-travel/alx-travel-app/internal/api"
	"github.com/alx-travel/alx-travel-app/internal/auth"
	"github.com/alx-travel/alx-travel-app/internal/config"
	"github.com/alx-travel/alx-travel-app/internal/logging"
	"github.com/alx-travel/alx-travel-app/internal/storage"
)

const (
	docsPath = "/swagger/"
	specPath = "/swagger.json"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	db      *gorm.DB
	tokens  *auth.TokenIssuer
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
// The MySQL backend opens a connection pool that Close releases.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	var (
		store storage.Storage
		db    *gorm.DB
	)
	switch cfg.StorageBackend {
	case config.StorageMemory:
		store = storage.NewMemoryStorage()
	default:
		var err error
		db, err = storage.Open(cfg.Database.DriverConfig(), logging.NewGormLogger(logger, cfg.Debug))
		if err != nil {
			return nil, err
		}
		store = storage.NewGormStorage(db)
	}

	app, err := NewWithStorage(cfg, logger, store)
	if err != nil {
		if db != nil {
			_ = storage.Close(db)
		}
		return nil, err
	}
	app.db = db
	return app, nil
}

// NewWithStorage wires the HTTP stack around an existing store.
func NewWithStorage(cfg config.Config, logger *zap.Logger, store storage.Storage) (*App, error) {
	tokens, err := auth.NewTokenIssuer(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	specHandler, err := api.OpenAPIHandler(api.NewOpenAPIDocument(cfg.DefaultPermission))
	if err != nil {
		return nil, fmt.Errorf("failed to encode API schema: %w", err)
	}
	siteHandler, err := BuildRootHandler(specHandler, cfg.StaticURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP handler: %w", err)
	}

	handler := api.NewHandler(store, api.WithLocation(cfg.Location))
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithAllowedHosts(cfg.EffectiveAllowedHosts()),
		api.WithCORS(cfg.CORSAllowAllOrigins, cfg.CORSAllowedOrigins),
		api.WithPermission(cfg.DefaultPermission, tokens),
		api.WithLanguageCode(cfg.LanguageCode),
		api.WithFallback(siteHandler),
	)

	return &App{
		storage: store,
		tokens:  tokens,
		handler: handler,
		router:  router,
		logger:  logger,
		server:  NewServer(cfg, router),
	}, nil
}

// BuildRootHandler serves everything outside /api: the OpenAPI schema, the
// Swagger UI page and static files mounted at staticURL.
func BuildRootHandler(specHandler http.Handler, staticURL string) (http.Handler, error) {
	mux := http.NewServeMux()

	staticPath, err := resolveProjectPath(filepath.Join("web", "static"))
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(staticURL, "/") || !strings.HasSuffix(staticURL, "/") || staticURL == "/" {
		return nil, fmt.Errorf("static URL %q must be an absolute path ending in /", staticURL)
	}
	mux.Handle(staticURL, http.StripPrefix(staticURL, http.FileServer(http.Dir(staticPath))))

	templatePath, err := resolveProjectPath(filepath.Join("web", "templates", "swagger.html"))
	if err != nil {
		return nil, err
	}
	page, err := template.ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("parse docs template: %w", err)
	}

	mux.Handle(specPath, specHandler)
	mux.Handle(docsPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != docsPath {
			api.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := struct {
			Title     string
			SpecURL   string
			StaticURL string
		}{
			Title:     "ALX Travel API",
			SpecURL:   specPath,
			StaticURL: staticURL,
		}
		if err := page.Execute(w, data); err != nil {
			http.Error(w, "failed to render docs", http.StatusInternalServerError)
		}
	}))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			api.NotFound(w, r)
			return
		}
		http.Redirect(w, r, docsPath, http.StatusFound)
	}))

	return mux, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Ping checks that the configured store is reachable.
func (a *App) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases the database connection pool, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return storage.Close(a.db)
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
