package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"dentaldash/internal/amqp"
	"dentaldash/internal/analytics"
	"dentaldash/internal/cache"
	"dentaldash/internal/log"
	"dentaldash/internal/middleware/ratelimit"
	"dentaldash/internal/middleware/security"
	"dentaldash/internal/middleware/trace"
	"dentaldash/internal/store"
	appweb "dentaldash/web"
)

// Loader serves the cached snapshot of the record table.
type Loader interface {
	Load(ctx context.Context) (*store.Snapshot, error)
	Invalidate(reason string)
	Status() store.Status
	Table() string
}

// RefreshPublisher broadcasts an invalidation to the other instances.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, msg *amqp.RefreshMessage) error
}

// Options wires the server to its collaborators. Publisher and Ping are
// optional.
type Options struct {
	Addr      string
	Store     Loader
	Publisher RefreshPublisher
	Ping      func(ctx context.Context) error
	Logger    *log.Logger

	// ViewCacheSize bounds the number of rendered views kept per snapshot.
	ViewCacheSize int
	ViewCacheTTL  time.Duration

	// RefreshPerMinute limits manual refreshes per client.
	RefreshPerMinute int
}

type Server struct {
	http.Server
	router    *mux.Router
	templates *template.Template
	store     Loader
	publisher RefreshPublisher
	ping      func(ctx context.Context) error
	logger    *log.Logger

	// rendered views keyed by snapshot time and query
	views    *cache.LRUCache[*analytics.ViewModel]
	limiter  *ratelimit.Limiter
	trace    *trace.Middleware
	clientIP *security.ClientIP
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.ViewCacheSize <= 0 {
		opts.ViewCacheSize = 64
	}
	if opts.ViewCacheTTL <= 0 {
		opts.ViewCacheTTL = store.DefaultTTL
	}
	if opts.RefreshPerMinute <= 0 {
		opts.RefreshPerMinute = 6
	}

	router := mux.NewRouter()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router:    router,
		store:     opts.Store,
		publisher: opts.Publisher,
		ping:      opts.Ping,
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		views:     cache.NewLRUCache[*analytics.ViewModel](opts.ViewCacheSize, opts.ViewCacheTTL),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{Requests: opts.RefreshPerMinute, Window: time.Minute}),
		trace:     trace.NewMiddleware(),
		clientIP:  security.NewClientIP(),
		started:   time.Now(),
	}

	t, err := parseTemplates()
	if err != nil {
		s.logger.WithComponent(log.ComponentTemplate).Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	router.Use(
		s.trace.Middleware,
		log.RequestMiddleware(opts.Logger, trace.FromRequest, s.clientIP.Extract),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
	)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		router.PathPrefix("/static/").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.Handle("/refresh", s.limiter.Middleware(s.clientIP.Extract, s.rateLimited)(http.HandlerFunc(s.handleRefresh))).
		Methods(http.MethodPost)

	router.Handle("/", noStore(s.handleIndex)).Methods(http.MethodGet)
	router.Handle("/api/view", noStore(s.handleView)).Methods(http.MethodGet)
	router.Handle("/api/status", noStore(s.handleStatus)).Methods(http.MethodGet)
	router.Handle("/export/{kind:[a-z_]+}.{format:csv|xlsx}", noStore(s.handleExport)).Methods(http.MethodGet)
	router.Handle("/export/{kind:[a-z_]+}", noStore(s.handleExport)).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return s
}

// Caches returns the server caches that need periodic cleanup.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.views, s.limiter}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func noStore(h http.HandlerFunc) http.Handler {
	return security.NoStore(h)
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
}
