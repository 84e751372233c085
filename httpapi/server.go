// Package httpapi exposes an ippool allocator over HTTP/JSON.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/spluca/ippool"
)

var log = logrus.WithField("prefix", "httpapi")

const maxBodyBytes = 64 << 10

// Options controls how a Server lays out its routes.
type Options struct {
	// BasePath prefixes every pool route, e.g. "/api/v1". /metrics is always
	// served from the root.
	BasePath string

	CORSEnabled        bool
	CORSAllowedOrigins []string
}

// Server routes requests to a pool. It holds no allocation state itself.
type Server struct {
	pool    ippool.IPv4Allocator
	opts    Options
	metrics *metrics
	handler http.Handler
}

// New builds a Server serving pool according to opts.
func New(pool ippool.IPv4Allocator, opts Options) *Server {
	s := &Server{
		pool:    pool,
		opts:    opts,
		metrics: newMetrics(pool),
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)

	api := router
	if opts.BasePath != "" {
		api = router.PathPrefix(opts.BasePath).Subrouter()
	}
	api.Use(s.metrics.instrument)
	s.loadRoutes(api)

	chain := []alice.Constructor{requestID, accessLog, recoverer}
	if opts.CORSEnabled {
		log.Debug("CORS enabled")
		c := cors.New(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", headerRequestID},
			ExposedHeaders: []string{headerRequestID},
		})
		chain = append(chain, c.Handler)
	}
	s.handler = alice.New(chain...).Then(router)

	return s
}

// Specific /ip/... routes are registered before the /ip/{vm_id} wildcard.
func (s *Server) loadRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ip/allocate", s.allocateHandler).Methods(http.MethodPost)
	r.HandleFunc("/ip/allocations", s.listAllocationsHandler).Methods(http.MethodGet)
	r.HandleFunc("/ip/stats", s.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/ip/release/{vm_id}", s.releaseHandler).Methods(http.MethodDelete)
	r.HandleFunc("/ip/release-by-ip/{ip}", s.releaseByIPHandler).Methods(http.MethodDelete)
	r.HandleFunc("/ip/{vm_id}", s.getAllocationHandler).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Routes lists the method and path of every pool route, for the startup
// banner.
func (s *Server) Routes() []string {
	p := s.opts.BasePath
	return []string{
		"POST   " + p + "/ip/allocate",
		"DELETE " + p + "/ip/release/{vm_id}",
		"DELETE " + p + "/ip/release-by-ip/{ip}",
		"GET    " + p + "/ip/{vm_id}",
		"GET    " + p + "/ip/allocations",
		"GET    " + p + "/ip/stats",
		"GET    " + p + "/health",
		"GET    /metrics",
	}
}
