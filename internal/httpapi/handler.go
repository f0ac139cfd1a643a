package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"permitmap/internal/figure"
	"permitmap/internal/metrics"
	"permitmap/internal/naming"
	"permitmap/internal/permits"
)

//go:embed templates/homepage.html
var homepageHTML string

var homepage = template.Must(template.New("homepage").Funcs(template.FuncMap{
	"num": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}).Parse(homepageHTML))

// Dataset is the read-only view of the permit data the handler serves.
type Dataset interface {
	Years() []int
	Labels() []string
	LatestYear() int
	ResolveLabel(label string) (string, bool)
	HasYear(year int) bool
	BuildPlot(permitType string, year int) (*figure.Figure, error)
	Navigate(label string, year int) permits.Navigation
	FeatureCount() int
	SeriesCount() int
}

// Options configures optional handler collaborators.
type Options struct {
	Metrics        *metrics.Metrics
	Clock          clockwork.Clock
	LoadedAt       time.Time
	RequestTimeout time.Duration
}

type Handler struct {
	log            zerolog.Logger
	data           Dataset
	metrics        *metrics.Metrics
	clock          clockwork.Clock
	startedAt      time.Time
	loadedAt       time.Time
	requestTimeout time.Duration
	defaultView    pageData
}

type pageData struct {
	Figure *figure.Figure
	Labels []string
	Years  []int
	Label  string
	Year   int
	Nav    permits.Navigation
}

// NewHandler builds the default view up front so that a dataset which
// cannot render fails at startup rather than on the first request.
func NewHandler(log zerolog.Logger, data Dataset, opts Options) (*Handler, error) {
	if data == nil {
		return nil, errors.New("httpapi: nil dataset")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	h := &Handler{
		log:            log,
		data:           data,
		metrics:        opts.Metrics,
		clock:          opts.Clock,
		startedAt:      opts.Clock.Now(),
		loadedAt:       opts.LoadedAt,
		requestTimeout: opts.RequestTimeout,
	}
	if h.loadedAt.IsZero() {
		h.loadedAt = h.startedAt
	}

	labels := data.Labels()
	view, err := h.buildView(labels[len(labels)-1], naming.TotalPermitType, data.LatestYear())
	if err != nil {
		return nil, fmt.Errorf("httpapi: build default view: %w", err)
	}
	h.defaultView = view
	return h, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.requestTimeout))
	r.Use(h.accessLog)

	r.Get("/", h.handleIndex)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Get("/metrics", h.metrics.Handler().ServeHTTP)

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := h.clock.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := h.clock.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), duration)

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"ready":          true,
		"features":       h.data.FeatureCount(),
		"series":         h.data.SeriesCount(),
		"years":          h.data.Years(),
		"permit_types":   h.data.Labels(),
		"loaded_at":      h.loadedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(h.clock.Since(h.startedAt).Seconds()),
	})
}

// handleIndex never fails on a bad selection; it serves the default view.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	label := q.Get("permit_type")
	year := parseYear(q.Get("year"))

	view, outcome, err := h.selectView(label, year)
	if err != nil {
		h.metrics.IncRender(metrics.RenderError)
		h.log.Error().Err(err).Str("permit_type", label).Int("year", year).Msg("build plot failed")
		http.Error(w, "failed to render map", http.StatusInternalServerError)
		return
	}
	if outcome == metrics.RenderFallback {
		h.log.Debug().Str("permit_type", label).Int("year", year).Msg("unknown selection, serving default view")
	}

	var buf bytes.Buffer
	if err := homepage.Execute(&buf, view); err != nil {
		h.metrics.IncRender(metrics.RenderError)
		h.log.Error().Err(err).Msg("render homepage failed")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	h.metrics.IncRender(outcome)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) selectView(label string, year int) (pageData, string, error) {
	if label == "" && year == 0 {
		return h.defaultView, metrics.RenderDefault, nil
	}
	raw, ok := h.data.ResolveLabel(label)
	if !ok || !h.data.HasYear(year) {
		return h.defaultView, metrics.RenderFallback, nil
	}
	if label == h.defaultView.Label && year == h.defaultView.Year {
		return h.defaultView, metrics.RenderSelected, nil
	}
	view, err := h.buildView(label, raw, year)
	return view, metrics.RenderSelected, err
}

func (h *Handler) buildView(label, permitType string, year int) (pageData, error) {
	start := h.clock.Now()
	fig, err := h.data.BuildPlot(permitType, year)
	if err != nil {
		return pageData{}, err
	}
	h.metrics.ObserveRenderDuration(h.clock.Since(start))
	return pageData{
		Figure: fig,
		Labels: h.data.Labels(),
		Years:  h.data.Years(),
		Label:  label,
		Year:   year,
		Nav:    h.data.Navigate(label, year),
	}, nil
}

// parseYear maps an empty or non-numeric year to 0, which no dataset contains.
func parseYear(s string) int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return y
}
