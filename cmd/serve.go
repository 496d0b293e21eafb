package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/config"
	"github.com/sells-group/rankrent-cli/internal/generation"
	"github.com/sells-group/rankrent-cli/internal/meta"
	"github.com/sells-group/rankrent-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the plan API used by the admin dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port

		env, err := initApp(config.FlowServe)
		if err != nil {
			return err
		}
		defer env.Tracker.Log()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(&planServer{path: cfg.Plan.Path, meta: env.Meta, cache: env.Cache}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("plan", cfg.Plan.Path))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// planServer exposes the plan editing commands over HTTP. A nil meta
// disables suggestion regeneration and a nil cache disables cache stats.
type planServer struct {
	path  string
	meta  *meta.Generator
	cache *generation.Cache
}

func newRouter(s *planServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/plan", func(r chi.Router) {
		r.Get("/", s.getPlan)
		r.Post("/keywords/move", s.moveKeyword)
		r.Post("/clusters", s.addCluster)
		r.Delete("/clusters/{ref}", s.deleteCluster)
		r.Post("/clusters/{ref}/select", s.selectSuggestion)
		r.Post("/clusters/{ref}/meta", s.regenerateMeta)
	})

	r.Get("/cache/stats", s.cacheStats)
	return r
}

type moveRequest struct {
	Keyword string `json:"keyword"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type addClusterRequest struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

type selectRequest struct {
	Index int `json:"index"`
}

func (s *planServer) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := readPlan(s.path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *planServer) moveKeyword(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	from, err := model.ParseClusterRef(req.From)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := model.ParseClusterRef(req.To)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	s.edit(w, func(p *model.Plan) error {
		return p.MoveKeyword(from, to, req.Keyword)
	})
}

func (s *planServer) addCluster(w http.ResponseWriter, r *http.Request) {
	var req addClusterRequest
	if !decode(w, r, &req) {
		return
	}
	typ, err := model.ParseClusterType(req.Type)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	s.edit(w, func(p *model.Plan) error {
		return p.AddCluster(typ, req.Name, req.Keywords)
	})
}

func (s *planServer) deleteCluster(w http.ResponseWriter, r *http.Request) {
	ref, ok := refParam(w, r)
	if !ok {
		return
	}
	var moveTo *model.ClusterRef
	if raw := r.URL.Query().Get("move_to"); raw != "" {
		to, err := model.ParseClusterRef(raw)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		moveTo = &to
	}
	s.edit(w, func(p *model.Plan) error {
		return p.DeleteCluster(ref, moveTo)
	})
}

func (s *planServer) selectSuggestion(w http.ResponseWriter, r *http.Request) {
	ref, ok := refParam(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	s.edit(w, func(p *model.Plan) error {
		return p.SelectSuggestion(ref, req.Index)
	})
}

func (s *planServer) regenerateMeta(w http.ResponseWriter, r *http.Request) {
	if s.meta == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "metadata generation is not configured"})
		return
	}
	ref, ok := refParam(w, r)
	if !ok {
		return
	}
	p, err := regenerateMeta(r.Context(), s.meta, s.path, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *planServer) cacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "cache is not configured"})
		return
	}
	st, err := s.cache.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// edit applies fn through editPlan and responds with the saved plan.
func (s *planServer) edit(w http.ResponseWriter, fn func(p *model.Plan) error) {
	p, err := editPlan(s.path, fn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func refParam(w http.ResponseWriter, r *http.Request) (model.ClusterRef, bool) {
	raw := chi.URLParam(r, "ref")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	ref, err := model.ParseClusterRef(raw)
	if err != nil {
		writeBadRequest(w, err)
		return model.ClusterRef{}, false
	}
	return ref, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// writeError maps plan and edit failures to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var providerErr *generation.ProviderError
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, model.ErrClusterNotFound),
		errors.Is(err, model.ErrKeywordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateCluster),
		errors.Is(err, model.ErrClusterNotEmpty),
		errors.Is(err, model.ErrCoverage):
		status = http.StatusConflict
	case errors.Is(err, meta.ErrNoSuggestions), errors.As(err, &providerErr):
		status = http.StatusBadGateway
	}
	if status != http.StatusNotFound {
		zap.L().Warn("plan api: request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
