package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alx-travel/alx-travel-app/internal/auth"
)

const defaultLanguageCode = "en-us"

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.enableLogging = enabled
	}
}

// WithRateLimiter overrides the default request rate limiter (primarily for tests).
func WithRateLimiter(limiter rateLimiter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.rateLimiter = limiter
	}
}

// WithRateLimit installs a token bucket limiter. A non-positive rate disables limiting.
func WithRateLimit(ratePerSecond float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		if ratePerSecond <= 0 {
			cfg.rateLimiter = nil
			return
		}
		cfg.rateLimiter = newTokenBucketLimiter(ratePerSecond, burst)
	}
}

// WithAllowedHosts rejects requests whose Host header matches none of hosts.
// Without this option every host is accepted.
func WithAllowedHosts(hosts []string) RouterOption {
	return func(cfg *routerConfig) {
		cfg.allowedHosts = append([]string{}, hosts...)
		cfg.validateHosts = true
	}
}

// WithCORS configures cross-origin handling. With allowAll unset and no
// origins listed, no CORS headers are emitted.
func WithCORS(allowAll bool, origins []string) RouterOption {
	return func(cfg *routerConfig) {
		cfg.corsAllowAll = allowAll
		cfg.corsOrigins = append([]string{}, origins...)
	}
}

// WithPermission sets the default permission policy on listing routes.
// tokens may be nil, in which case no request is ever authenticated.
func WithPermission(permission auth.Permission, tokens *auth.TokenIssuer) RouterOption {
	return func(cfg *routerConfig) {
		cfg.permission = permission
		cfg.tokens = tokens
	}
}

// WithFallback serves requests that match no API route. Without it such
// requests get a JSON 404.
func WithFallback(h http.Handler) RouterOption {
	return func(cfg *routerConfig) {
		cfg.fallback = h
	}
}

// WithLanguageCode sets the Content-Language advertised on every response.
func WithLanguageCode(code string) RouterOption {
	return func(cfg *routerConfig) {
		if code != "" {
			cfg.languageCode = code
		}
	}
}

type routerConfig struct {
	enableLogging bool
	logger        *zap.Logger
	rateLimiter   rateLimiter

	validateHosts bool
	allowedHosts  []string

	corsAllowAll bool
	corsOrigins  []string

	permission   auth.Permission
	tokens       *auth.TokenIssuer
	languageCode string
	fallback     http.Handler
}

// NewRouter creates an HTTP router with standard middleware.
func NewRouter(handler *Handler, logger *zap.Logger, opts ...RouterOption) http.Handler {
	cfg := routerConfig{
		enableLogging: true,
		logger:        logger,
		rateLimiter:   newTokenBucketLimiter(25, 50),
		corsAllowAll:  true,
		permission:    auth.AllowAny,
		languageCode:  defaultLanguageCode,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := mux.NewRouter().StrictSlash(true)
	r.NotFoundHandler = http.HandlerFunc(NotFound)
	if cfg.fallback != nil {
		r.NotFoundHandler = cfg.fallback
	}
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health/", handler.handleHealth).Methods(http.MethodGet, http.MethodHead)

	listings := api.PathPrefix("/listings").Subrouter()
	listings.Use(permissionMiddleware(cfg.permission, cfg.tokens))
	listings.HandleFunc("/", handler.handleListListings).Methods(http.MethodGet, http.MethodHead)
	listings.HandleFunc("/", handler.handleCreateListing).Methods(http.MethodPost)
	listings.HandleFunc("/{id:[0-9]+}/", handler.handleGetListing).Methods(http.MethodGet, http.MethodHead)
	listings.HandleFunc("/{id:[0-9]+}/", handler.handleReplaceListing).Methods(http.MethodPut)
	listings.HandleFunc("/{id:[0-9]+}/", handler.handlePatchListing).Methods(http.MethodPatch)
	listings.HandleFunc("/{id:[0-9]+}/", handler.handleDeleteListing).Methods(http.MethodDelete)

	var root http.Handler = r
	root = clickjackingMiddleware(root)
	root = commonMiddleware(cfg.languageCode, root)
	if cors := corsHandler(cfg.corsAllowAll, cfg.corsOrigins); cors != nil {
		root = cors(root)
	}
	if cfg.validateHosts {
		root = hostValidationMiddleware(cfg.allowedHosts, root)
	}
	root = securityHeadersMiddleware(root)
	root = recoveryMiddleware(cfg.logger, root)
	if cfg.enableLogging {
		root = loggingMiddleware(cfg.logger, root)
	}
	root = rateLimitMiddleware(cfg.rateLimiter, root)
	root = requestIDMiddleware(root)

	return root
}

func corsHandler(allowAll bool, origins []string) func(http.Handler) http.Handler {
	if !allowAll && len(origins) == 0 {
		return nil
	}
	if allowAll {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID", "X-Total-Count"}),
		handlers.MaxAge(600),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}

// NotFound writes the JSON 404 used across the service.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found", "no route matches the requested path")
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported on this resource")
}
