// Package rest exposes the library service over HTTP.
package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/biblioteca/services/library/internal/aggregate"
	"github.com/biblioteca/services/library/internal/auth"
	"github.com/biblioteca/services/library/internal/db"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Store is the repository surface used directly by handlers
type Store interface {
	ListCategories(ctx context.Context) ([]db.Category, error)
	GetUserByAccount(ctx context.Context, account string) (*db.User, error)
	GetBookDetail(ctx context.Context, bookID uint) (*db.BookDetail, error)
	BooksByCategory(ctx context.Context, categoryID uint) ([]db.Book, error)
	CreateReserve(ctx context.Context, account string, bookID uint, topTier uint, checkout time.Time) (*db.Reserve, error)
}

// ReservePublisher announces new reserves
type ReservePublisher interface {
	PublishReserveCreated(ctx context.Context, reserveID, bookID uint, account string, checkout time.Time) error
}

// HealthChecker reports whether the service dependencies are reachable
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// Options wires a Server. Publisher, Health and Metrics are optional.
type Options struct {
	Store       Store
	Searcher    *aggregate.Searcher
	Recommender *aggregate.Recommender
	Loans       *aggregate.LoanFormatter
	Home        *aggregate.HomeBuilder
	Tokens      *auth.JWTManager
	Publisher   ReservePublisher
	Health      HealthChecker
	Metrics     http.Handler
	Log         *zap.Logger
	Now         func() time.Time

	CookieSecure       bool
	CORSAllowedOrigins []string
	TopReputationTier  uint
}

// Server holds the HTTP handlers
type Server struct {
	store       Store
	searcher    *aggregate.Searcher
	recommender *aggregate.Recommender
	loans       *aggregate.LoanFormatter
	home        *aggregate.HomeBuilder
	tokens      *auth.JWTManager
	publisher   ReservePublisher
	health      HealthChecker
	metrics     http.Handler
	log         *zap.Logger
	now         func() time.Time

	cookieSecure bool
	corsOrigins  []string
	topTier      uint

	// in-flight event publications
	pending sync.WaitGroup
}

// NewServer creates the HTTP server handlers
func NewServer(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		store:        opts.Store,
		searcher:     opts.Searcher,
		recommender:  opts.Recommender,
		loans:        opts.Loans,
		home:         opts.Home,
		tokens:       opts.Tokens,
		publisher:    opts.Publisher,
		health:       opts.Health,
		metrics:      opts.Metrics,
		log:          opts.Log,
		now:          now,
		cookieSecure: opts.CookieSecure,
		corsOrigins:  opts.CORSAllowedOrigins,
		topTier:      opts.TopReputationTier,
	}
}

// Router builds the chi router with every route and middleware
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(prometheusMetrics)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/logout", s.logout)

		r.Get("/categories", s.listCategories)
		r.Get("/categories/all", s.categoryTree)
		r.Get("/categories/{categoryID}/books", s.categoryBooks)
		r.Get("/books/{bookID}", s.bookDetail)
		r.Get("/search", s.search)

		r.Get("/recommendations/global", s.globalRecommendations)
		r.Get("/recommendations/popular", s.popularBooks)
		r.Get("/recommendations/recent", s.recentBooks)

		r.Get("/loans/estudiantes/{numeroCuenta}", s.studentHome)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/home", s.myHome)
			r.Get("/recommendations/personal", s.personalRecommendations)
			r.Get("/loans/me", s.myLoans)
			r.Get("/loans/history", s.loanHistory)
			r.Post("/reserves", s.createReserve)
		})
	})

	return r
}

// Wait blocks until background event publications finish
func (s *Server) Wait() {
	s.pending.Wait()
}
