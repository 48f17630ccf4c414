// Package devserver emulates the Vicere backend endpoints the client core
// talks to: simple-jwt-login auth and validate, get_user_data_wp.php,
// verifica_cpf.class.php and the WooCommerce customers resource. It keeps
// users in memory and is meant for local development and tests.
package devserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Options configures a Server.
type Options struct {
	// Secret signs the HS256 tokens. Required.
	Secret []byte
	// TokenTTL defaults to one hour.
	TokenTTL time.Duration
	// ConsumerKey and ConsumerSecret guard the WooCommerce routes. When
	// both are empty those routes are open.
	ConsumerKey    string
	ConsumerSecret string
	// RateLimitPerMinute per client address; 0 disables limiting.
	RateLimitPerMinute int
	Logger             *slog.Logger
	Clock              func() time.Time
}

type Server struct {
	Users *Directory

	secret         []byte
	tokenTTL       time.Duration
	consumerKey    string
	consumerSecret string
	limiter        *RateLimiter
	log            *slog.Logger
	now            func() time.Time
}

func New(opts Options) *Server {
	s := &Server{
		Users:          NewDirectory(),
		secret:         opts.Secret,
		tokenTTL:       opts.TokenTTL,
		consumerKey:    opts.ConsumerKey,
		consumerSecret: opts.ConsumerSecret,
		log:            opts.Logger,
		now:            opts.Clock,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = tokenLifetime
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = NewRateLimiter(opts.RateLimitPerMinute)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(s.Logging)
	r.Use(s.RateLimit)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// WordPress serves every REST route from the site root when pretty
	// permalinks are off; the route travels in ?rest_route=.
	r.HandleFunc("/", s.HandleRestRoute)

	r.HandleFunc("/get_user_data_wp.php", s.HandleUserData).Methods(http.MethodGet)
	r.HandleFunc("/verifica_cpf.class.php", s.HandleCPFExists).Methods(http.MethodGet)

	wc := r.PathPrefix("/wc/v2").Subrouter()
	wc.Use(s.ConsumerAuth)
	wc.HandleFunc("/customers/{id:[0-9]+}", s.HandleCustomer).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeRESTError(w, http.StatusNotFound, "rest_no_route", "No route was found matching the URL and request method.")
	})
	return r
}
