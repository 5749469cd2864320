// Package server serves built Data Docs sites over HTTP, straight out of
// whatever storage backend each site publishes to. Pages are served with
// ETags so browsers can revalidate cheaply, and an optional API key guards
// everything except the health endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-http-utils/etag"
	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/go-data-docs/site"
	"github.com/sardine-ai/go-data-docs/store"
)

const shutdownTimeout = 5 * time.Second

// SiteStatus is one site's build bookkeeping as exposed on /status.
type SiteStatus struct {
	Name      string    `json:"name"`
	Builds    int       `json:"builds"`
	LastBuilt time.Time `json:"last_built"`
	LastError string    `json:"last_error,omitempty"`
	Healthy   bool      `json:"healthy"`
}

type siteState struct {
	builds    int
	lastBuilt time.Time
	lastError string
	healthy   bool
}

// Server serves one or more sites, each under /<name>/, from the site's
// storage backend. Build outcomes are reported in through RecordBuild and
// reflected by /health, /ready and /status.
type Server struct {
	Sites   []site.Site
	AuthKey string

	mu         sync.RWMutex
	states     map[string]*siteState
	httpServer *http.Server
}

// NewServer returns a server for the given sites. Every site starts
// unhealthy until a successful build is recorded for it.
func NewServer(sites []site.Site) *Server {
	states := make(map[string]*siteState, len(sites))
	for _, st := range sites {
		states[st.Name] = &siteState{}
	}
	return &Server{Sites: sites, states: states}
}

// RecordBuild notes the outcome of a site build. The publisher calls this
// after every build attempt; a nil error marks the site healthy.
func (s *Server) RecordBuild(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[name]
	if !ok {
		state = &siteState{}
		s.states[name] = state
	}
	state.builds++
	if err != nil {
		state.lastError = err.Error()
		state.healthy = false
		return
	}
	state.lastBuilt = time.Now().UTC()
	state.lastError = ""
	state.healthy = true
}

// IsHealthy reports whether every site's latest build succeeded.
func (s *Server) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, state := range s.states {
		if !state.healthy {
			return false
		}
	}
	return len(s.states) > 0
}

// IsReady reports whether at least one site can be served.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, state := range s.states {
		if state.healthy {
			return true
		}
	}
	return false
}

// GetSiteStatus returns a snapshot of every site's build state.
func (s *Server) GetSiteStatus() map[string]SiteStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := make(map[string]SiteStatus, len(s.states))
	for name, state := range s.states {
		status[name] = SiteStatus{
			Name:      name,
			Builds:    state.builds,
			LastBuilt: state.lastBuilt,
			LastError: state.lastError,
			Healthy:   state.healthy,
		}
	}
	return status
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	handler := etag.Handler(s.CreateHandlers(), false)
	if s.AuthKey != "" {
		handler = Auth(handler, s.AuthKey)
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	logrus.WithField("addr", addr).Info("starting data docs server")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener gracefully, letting in-flight requests
// finish.
func (s *Server) Shutdown() error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// CreateHandlers builds the route table: health endpoints, one subtree per
// site, and a root listing.
func (s *Server) CreateHandlers() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	for _, st := range s.Sites {
		mux.HandleFunc("/"+st.Name+"/", s.sitePageHandler(st))
	}
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	if !s.IsHealthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	if !s.IsReady() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"healthy": s.IsHealthy(),
		"ready":   s.IsReady(),
		"sites":   s.GetSiteStatus(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowRead(w, r) {
		return
	}
	if len(s.Sites) == 1 {
		http.Redirect(w, r, "/"+s.Sites[0].Name+"/", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!doctype html><title>Data Docs</title><h1>Data Docs</h1><ul>")
	for _, st := range s.Sites {
		fmt.Fprintf(w, `<li><a href="/%s/">%s</a></li>`, st.Name, st.Name)
	}
	fmt.Fprint(w, "</ul>")
}

// sitePageHandler serves one site's pages from its store. The site root and
// directory-style paths fall back to index.html.
func (s *Server) sitePageHandler(st site.Site) http.HandlerFunc {
	prefix := "/" + st.Name + "/"
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		rel := strings.TrimPrefix(r.URL.Path, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			rel += "index.html"
		}
		key, err := store.ParseKey(rel)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		data, err := st.Store.Get(r.Context(), key)
		if errors.Is(err, store.ErrNotFound) && path.Ext(rel) == "" {
			key = append(key, "index.html")
			data, err = st.Store.Get(r.Context(), key)
		}
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			logrus.WithError(err).WithField("site", st.Name).Error("error reading page")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", store.ContentTypeForKey(key))
		if _, err := w.Write(data); err != nil {
			logrus.WithError(err).Error("error writing response")
		}
	}
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("error writing response")
	}
}

// Auth is a middleware that checks if the request is authenticated.
// If not, it returns a 401 Unauthorized response. Health endpoints are
// always reachable so probes keep working behind the key.
func Auth(next http.Handler, authKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/ready", "/status":
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-KEY")
		if key == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if key != authKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
