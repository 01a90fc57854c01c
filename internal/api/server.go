package api

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/parkwait/internal/assess"
	"github.com/lox/parkwait/internal/session"
	"github.com/lox/parkwait/internal/store"
)

const sessionCookie = "parkwait_session"

// Options configures the HTTP server.
type Options struct {
	Addr          string
	BatchHistory  bool
	SessionTTL    time.Duration
	SecureCookies bool
	// Clock overrides time.Now for assessments. Used by tests.
	Clock func() time.Time
}

type Server struct {
	store    *store.Store
	engine   *assess.Engine
	sessions session.Store
	opts     Options
	loc      *time.Location
	tmpl     *template.Template
	now      func() time.Time
}

func NewServer(st *store.Store, sessions session.Store, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Server{
		store:    st,
		engine:   assess.NewEngine(st, assess.WithBatchHistory(opts.BatchHistory), assess.WithClock(opts.Clock)),
		sessions: sessions,
		opts:     opts,
		loc:      st.Location(),
		tmpl:     newTemplates(st.Location()),
		now:      opts.Clock,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/park", s.handleParkChosen)
	r.Post("/attractions", s.handleAttractionsChosen)
	r.Post("/back", s.handleBack)
	r.Post("/reset", s.handleReset)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/parks", s.handleAPIParks)
		r.Get("/parks/{park}/attractions", s.handleAPIAttractions)
		r.Get("/assessment", s.handleAPIAssessment)
	})
	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("server: listening on %s", s.opts.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
