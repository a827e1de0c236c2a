package handlers

import (
	"net/http"
	"sync/atomic"
)

// Routes are the handlers mounted by NewRouter. Metrics is optional.
type Routes struct {
	Auth       *AuthHandler
	Storage    *StorageHandler
	Middleware *Middleware
	Startup    *Startup
	Metrics    http.Handler
}

// NewRouter mounts the JSON API, health and metrics endpoints behind request logging
func NewRouter(rt Routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", rt.Startup.Health)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	mux.Handle("POST /api/auth", rt.Startup.RequireReady(http.HandlerFunc(rt.Auth.Login)))
	mux.Handle("GET /api/storage", rt.Startup.RequireReady(rt.Middleware.RequireToken(http.HandlerFunc(rt.Storage.GetBoard))))
	mux.Handle("POST /api/storage", rt.Startup.RequireReady(rt.Middleware.RequireToken(http.HandlerFunc(rt.Storage.PostCommand))))

	return Logging(mux)
}

// NewBootRouter serves health checks while the server initializes and
// answers every other request with 503.
func NewBootRouter(startup *Startup) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", startup.Health)
	mux.Handle("/", startup.RequireReady(http.NotFoundHandler()))
	return Logging(mux)
}

// HandlerSwitch delegates to the handler most recently passed to Set
type HandlerSwitch struct {
	current atomic.Pointer[handlerBox]
}

type handlerBox struct {
	http.Handler
}

// NewHandlerSwitch creates a switch serving initial
func NewHandlerSwitch(initial http.Handler) *HandlerSwitch {
	s := &HandlerSwitch{}
	s.Set(initial)
	return s
}

// Set replaces the handler for subsequent requests
func (s *HandlerSwitch) Set(h http.Handler) {
	s.current.Store(&handlerBox{h})
}

func (s *HandlerSwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.current.Load().ServeHTTP(w, r)
}
