// Package server exposes the normalizer over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/normalize"
	"github.com/sells-group/truckpark-cli/internal/profile"
	"github.com/sells-group/truckpark-cli/internal/raw"
	"github.com/sells-group/truckpark-cli/internal/store"
)

// DefaultMaxBodyBytes caps POST bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 32 << 20

// Options configures the API.
type Options struct {
	Registry       *profile.Registry
	Store          store.Store // optional; enables GET /v1/facilities
	Workers        int
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server serves the normalization API.
type Server struct {
	registry *profile.Registry
	store    store.Store
	workers  int
	origins  []string
	maxBody  int64
}

// New creates a Server. A nil registry means the built-in profiles.
func New(opts Options) *Server {
	s := &Server{
		registry: opts.Registry,
		store:    opts.Store,
		workers:  opts.Workers,
		origins:  opts.AllowedOrigins,
		maxBody:  opts.MaxBodyBytes,
	}
	if s.registry == nil {
		s.registry = profile.DefaultRegistry()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/profiles", s.handleProfiles)
		r.Post("/normalize", s.handleNormalize)
		r.Get("/facilities", s.handleFacilities)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ProfileInfo describes a registered profile and its key paths.
type ProfileInfo struct {
	Source      string              `json:"source"`
	Description string              `json:"description,omitempty"`
	Paths       map[string][]string `json:"paths"`
}

// Describe renders p's key paths by canonical field name.
func Describe(p *profile.Profile) ProfileInfo {
	paths := map[string][]raw.Path{
		"id":            p.ID,
		"id_namespace":  p.IDNamespace,
		"file_id":       p.FileIDs,
		"name":          p.Name,
		"latitude":      p.Latitude,
		"longitude":     p.Longitude,
		"facility_type": p.FacilityType,
		"highway":       p.Highway,
		"operator":      p.Operator,
		"state":         p.State,
		"city":          p.City,
		"truck_spaces":  p.TruckSpaces,
		"camera_urls":   p.CameraURLs,
	}
	info := ProfileInfo{Source: p.Source, Description: p.Description, Paths: make(map[string][]string)}
	for field, ps := range paths {
		if len(ps) == 0 {
			continue
		}
		out := make([]string, len(ps))
		for i, path := range ps {
			out[i] = path.String()
		}
		info.Paths[field] = out
	}
	return info
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	all := s.registry.All()
	out := make([]ProfileInfo, len(all))
	for i, p := range all {
		out[i] = Describe(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// NormalizeRequest is the POST /v1/normalize body.
type NormalizeRequest struct {
	Sources []SourceInput `json:"sources"`
}

// SourceInput is one batch of records under a named profile.
type SourceInput struct {
	Profile string       `json:"profile"`
	Label   string       `json:"label"`
	Records []raw.Record `json:"records"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Sources) == 0 {
		writeError(w, http.StatusBadRequest, "sources is required")
		return
	}

	batches := make([]normalize.Batch, len(req.Sources))
	for i, src := range req.Sources {
		p, err := s.registry.Get(src.Profile)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		batches[i] = normalize.Batch{Profile: p, Label: src.Label, Records: src.Records}
	}

	res, err := normalize.Normalize(batches, normalize.Options{Workers: s.workers})
	if err != nil {
		if eris.Is(err, normalize.ErrInvalidProfile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("server: normalize failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "normalize failed")
		return
	}

	zap.L().Info("server: normalized",
		zap.Int("input", res.Stats.Input),
		zap.Int("accepted", res.Stats.Accepted),
		zap.Int("rejected", res.Stats.Rejected),
	)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	q := r.URL.Query()
	filter := store.FacilityFilter{
		DataSource: q.Get("source"),
		State:      q.Get("state"),
	}
	if t := q.Get("type"); t != "" {
		ft, err := model.ParseFacilityType(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Type = ft
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		*dst = n
	}

	facilities, err := s.store.ListFacilities(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list facilities", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list facilities failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"facilities": facilities, "count": len(facilities)})
}
