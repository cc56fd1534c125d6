package hls

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/padhai-cli/padhai/log"
)

// ErrRelayClosed is returned when registering on a closed relay.
var ErrRelayClosed = errors.New("relay closed")

// Relay is a loopback HTTP server through which decoders hand their output
// to the player. Each decoder owns one route, /{id}/, for as long as it lives.
type Relay struct {
	addr string
	log  log.Entry

	mu       sync.RWMutex
	routes   map[string]http.Handler
	listener net.Listener
	server   *http.Server
	closed   bool
}

// NewRelay creates a relay that will listen on addr once the first route is registered.
func NewRelay(addr string) *Relay {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	return &Relay{
		addr:   addr,
		log:    log.For("relay"),
		routes: make(map[string]http.Handler),
	}
}

// Handler returns the relay's router.
func (r *Relay) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(loopbackOnly)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Get("/{id}/*", r.serve)

	return router
}

func (r *Relay) serve(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")

	r.mu.RLock()
	h, ok := r.routes[id]
	r.mu.RUnlock()

	if !ok {
		http.NotFound(w, req)
		return
	}

	h.ServeHTTP(w, req)
}

// loopbackOnly rejects requests from anything but the local machine.
func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		host, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			host = req.RemoteAddr
		}
		if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// start binds the listener. Callers hold r.mu.
func (r *Relay) start() error {
	if r.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("relay listen: %w", err)
	}

	r.listener = ln
	r.server = &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.WithError(err).Error("relay stopped")
		}
	}()

	r.log.Infof("listening on %s", ln.Addr())
	return nil
}

// Register mounts h under a fresh id and returns the id.
func (r *Relay) Register(h http.Handler) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", ErrRelayClosed
	}
	if err := r.start(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	r.routes[id] = h
	return id, nil
}

// Unregister removes the route; later requests get 404.
func (r *Relay) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, id)
}

// URL is the playlist address of the route id.
func (r *Relay) URL(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s/%s/index.m3u8", r.listener.Addr(), id)
}

// Routes is the number of registered routes.
func (r *Relay) Routes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Close shuts the server down.
func (r *Relay) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	server := r.server
	r.routes = make(map[string]http.Handler)
	r.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
