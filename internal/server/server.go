// Package server serves the site on demand, regenerating pages once their
// revalidation window has passed.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Bitlatte/spacetraveling/internal/cache"
	"github.com/Bitlatte/spacetraveling/internal/model"
	"github.com/Bitlatte/spacetraveling/internal/page"
	"github.com/Bitlatte/spacetraveling/internal/site"
)

// Server wires the page controller, the layouts and the page cache to HTTP.
type Server struct {
	pages     *page.Controller
	renderer  *site.Renderer
	cache     *cache.Revalidator
	staticDir string
	window    time.Duration

	logInfo  *log.Logger
	logError *log.Logger

	mu    sync.RWMutex
	local map[string]*model.ContentItem
}

// Config holds the collaborators of a Server.
type Config struct {
	Pages     *page.Controller
	Renderer  *site.Renderer
	Cache     *cache.Revalidator
	StaticDir string
	Window    time.Duration
	LogInfo   *log.Logger
	LogError  *log.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	return &Server{
		pages:     cfg.Pages,
		renderer:  cfg.Renderer,
		cache:     cfg.Cache,
		staticDir: cfg.StaticDir,
		window:    cfg.Window,
		logInfo:   cfg.LogInfo,
		logError:  cfg.LogError,
		local:     map[string]*model.ContentItem{},
	}
}

// SetPages replaces the local markdown pages served by the server.
func (s *Server) SetPages(items []*model.ContentItem) {
	local := make(map[string]*model.ContentItem, len(items))
	for _, item := range items {
		local[strings.Trim(item.Permalink, "/")] = item
	}
	s.mu.Lock()
	s.local = local
	s.mu.Unlock()
	s.renderer.SetPages(items)
}

// Router returns the HTTP routes of the site.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.Handle("/", s.HomeHandler()).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/page/{n:[0-9]+}/", s.HomeHandler()).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/post/{slug}", s.PostHandler()).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/").Handler(s.FallbackHandler()).Methods(http.MethodGet, http.MethodHead)
	return r
}

// HomeHandler serves the post listing. Listing page N lives at /page/N/;
// ?page=N is accepted too.
func (s *Server) HomeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := 1
		raw := mux.Vars(r)["n"]
		if raw == "" {
			raw = r.URL.Query().Get("page")
		}
		if raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				s.notFound(w)
				return
			}
			n = v
		}

		body, err := s.cache.Get(r.Context(), fmt.Sprintf("home/%d", n), func(ctx context.Context) ([]byte, error) {
			listing, err := s.pages.Listing(context.WithoutCancel(ctx), n)
			if err != nil {
				return nil, err
			}
			if n > 1 && len(listing.Posts) == 0 {
				return nil, fmt.Errorf("listing page %d: %w", n, model.ErrDocumentNotFound)
			}
			var buf bytes.Buffer
			if err := s.renderer.Home(&buf, &listing); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		})
		s.respond(w, r, body, err)
	})
}

// PostHandler serves /post/{slug}. Posts not generated yet are generated on
// the first request.
func (s *Server) PostHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := mux.Vars(r)["slug"]

		body, err := s.cache.Get(r.Context(), "post/"+slug, func(ctx context.Context) ([]byte, error) {
			s.logInfo.Printf("Generating post %s", slug)
			res, err := s.pages.Generate(context.WithoutCancel(ctx), slug)
			if err != nil {
				return nil, err
			}
			if res.State == page.NotFound {
				return nil, fmt.Errorf("post %q: %w", slug, model.ErrDocumentNotFound)
			}
			if res.Warnings != nil {
				s.logInfo.Printf("Post %s has malformed content: %v", slug, res.Warnings)
			}
			var buf bytes.Buffer
			if err := s.renderer.Post(&buf, res.Page); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		})
		s.respond(w, r, body, err)
	})
}

// FallbackHandler serves local pages and static files, or the not-found page.
func (s *Server) FallbackHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.Trim(path.Clean("/"+r.URL.Path), "/")

		s.mu.RLock()
		item, ok := s.local[key]
		s.mu.RUnlock()
		if ok {
			var buf bytes.Buffer
			if err := s.renderer.Page(&buf, item); err != nil {
				s.logError.Printf("Rendering page %s: %v", key, err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			writeHTML(w, http.StatusOK, buf.Bytes())
			return
		}

		if s.staticDir != "" {
			dir := http.Dir(s.staticDir)
			if f, err := dir.Open(r.URL.Path); err == nil {
				info, statErr := f.Stat()
				f.Close()
				if statErr == nil && !info.IsDir() {
					http.FileServer(dir).ServeHTTP(w, r)
					return
				}
			}
		}
		s.notFound(w)
	})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, body []byte, err error) {
	if errors.Is(err, model.ErrDocumentNotFound) {
		s.logInfo.Printf("Not found: %s", r.URL.Path)
		s.notFound(w)
		return
	}
	if err != nil {
		s.logError.Printf("Generating %s: %v", r.URL.Path, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("s-maxage=%d, stale-while-revalidate", int(s.window.Seconds())))
	writeHTML(w, http.StatusOK, body)
}

func (s *Server) notFound(w http.ResponseWriter) {
	var buf bytes.Buffer
	if err := s.renderer.NotFound(&buf); err != nil {
		s.logError.Printf("Rendering not-found page: %v", err)
		http.NotFound(w, nil)
		return
	}
	writeHTML(w, http.StatusNotFound, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
