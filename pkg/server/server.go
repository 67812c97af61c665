package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docdb/pkg/api"
	"github.com/adfharrison1/go-docdb/pkg/engine"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
)

// Server holds references to the database, router, etc.
type Server struct {
	router   *mux.Router
	db       *engine.Database
	recorder *metrics.Recorder
}

// NewServer creates a new instance of Server. stats reports store memory
// usage on /health and may be nil.
func NewServer(db *engine.Database, stats api.MemoryStatsProvider, recorder *metrics.Recorder) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		db:       db,
		recorder: recorder,
	}

	// Define HTTP routes
	api.NewHandler(db, stats, recorder).RegisterRoutes(s.router)

	s.router.Use(requestLoggerMiddleware)
	s.router.Use(recorder.Middleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: No route found for %s %s", r.Method, r.URL.Path)
		api.WriteJSONError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})

	return s
}

// requestLoggerMiddleware logs the method, URL path, and duration for each request.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		log.Printf("INFO: Request %s %s took %s", r.Method, r.URL.Path, elapsed)
	})
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close closes the database and its store
func (s *Server) Close() error {
	return s.db.Close()
}
