package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/franckalain/nutritrack/internal/database"
	"github.com/franckalain/nutritrack/internal/logging"
	"github.com/franckalain/nutritrack/internal/metrics"
	"github.com/franckalain/nutritrack/internal/ml"
	"github.com/franckalain/nutritrack/internal/models"
	"github.com/franckalain/nutritrack/internal/storage"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultShutdownTimeout = 15 * time.Second
	requestTimeout         = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FoodSource looks foods up in the external food database.
type FoodSource interface {
	Search(ctx context.Context, query string, limit int) ([]models.FoodItem, error)
	Detail(ctx context.Context, id string) (models.FoodItem, error)
}

// Deps are the collaborators a Server needs. DB, Foods and Model are
// required; the rest default to no-ops.
type Deps struct {
	DB              database.DB
	Foods           FoodSource
	Model           ml.Model
	Images          storage.ImageStore
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
	StaticDir       string
	ShutdownTimeout time.Duration
	Debug           bool
}

type Server struct {
	db       database.DB
	foods    FoodSource
	model    ml.Model
	images   storage.ImageStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
	clients  sync.Map // client id -> *websocket.Conn
	pending  sync.Map // scan id -> pendingScan
	static   string
	shutdown time.Duration
	debug    bool
	now      func() time.Time
}

func New(d Deps) *Server {
	logger := logging.OrNop(d.Logger).Named("server")
	if d.Debug {
		logger.Debug("debug logging enabled")
	}
	if d.Images == nil {
		d.Images = storage.NopStore{}
	}
	if d.ShutdownTimeout <= 0 {
		d.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Server{
		db:       d.DB,
		foods:    d.Foods,
		model:    d.Model,
		images:   d.Images,
		metrics:  d.Metrics,
		logger:   logger,
		static:   d.StaticDir,
		shutdown: d.ShutdownTimeout,
		debug:    d.Debug,
		now:      time.Now,
	}
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	// Websocket connections are long-lived, so they stay outside the timeout.
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Get("/foods/search", s.handleSearchFoods)
		r.Post("/foods/scale", s.handleScaleFood)
		r.Get("/foods/{id}", s.handleGetFood)

		r.Get("/meals", s.handleListMeals)
		r.Post("/meals", s.handleLogMeal)
		r.Get("/meals/{id}", s.handleGetMeal)
		r.Delete("/meals/{id}", s.handleDeleteMeal)

		r.Get("/goal", s.handleGetGoal)
		r.Put("/goal", s.handlePutGoal)
		r.Get("/progress", s.handleProgress)

		r.Get("/scans/{id}", s.handleGetScan)
	})

	if s.static != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.static)))
	}
	return r
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server.
	s.closeClients()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) closeClients() {
	s.clients.Range(func(key, value any) bool {
		if conn, ok := value.(*websocket.Conn); ok {
			conn.Close()
		}
		s.clients.Delete(key)
		return true
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
