package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"permitmap/internal/config"
	"permitmap/internal/db"
	"permitmap/internal/geodoc"
	"permitmap/internal/httpapi"
	"permitmap/internal/metrics"
	"permitmap/internal/permits"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(envOr("CONFIG_FILE", ""))
	if err != nil {
		logger := httpapi.NewLogger("info")
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	m := metrics.New()

	start := clock.Now()
	data, err := loadDataset(ctx, logger, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load dataset")
	}
	loadDuration := clock.Since(start)
	m.SetDataset(data.FeatureCount(), data.SeriesCount(), loadDuration)
	logger.Info().
		Int("features", data.FeatureCount()).
		Int("series", data.SeriesCount()).
		Ints("years", data.Years()).
		Strs("permit_types", data.Labels()).
		Dur("load_duration", loadDuration).
		Msg("dataset loaded")

	h, err := httpapi.NewHandler(logger, data, httpapi.Options{
		Metrics:        m,
		Clock:          clock,
		LoadedAt:       clock.Now(),
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build handler")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("permitmap listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

// loadDataset reads boundaries and permit counts. A shapefile takes
// precedence over GeoJSON and DATABASE_URL over the CSV file.
func loadDataset(ctx context.Context, logger zerolog.Logger, cfg *config.Config) (*permits.Dataset, error) {
	var (
		doc *geodoc.Document
		err error
	)
	if cfg.ShapefilePath != "" {
		logger.Info().Str("path", cfg.ShapefilePath).Str("zip_field", cfg.ZIPField).Msg("loading shapefile boundaries")
		doc, err = geodoc.LoadShapefile(cfg.ShapefilePath, cfg.ZIPField)
	} else {
		logger.Info().Str("path", cfg.GeoJSONPath).Msg("loading geojson boundaries")
		doc, err = geodoc.Load(cfg.GeoJSONPath)
	}
	if err != nil {
		return nil, err
	}

	opts := permits.Options{DisplayPrefix: &cfg.DisplayPrefix}
	var src permits.Source = permits.CSVSource{Path: cfg.PermitCSVPath}
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Permit counts are read once; the pool is not needed afterwards.
		defer pool.Close()
		logger.Info().Msg("loading permit counts from postgres")
		src = permits.QuerySource{Q: pool.Queries()}
	} else {
		logger.Info().Str("path", cfg.PermitCSVPath).Msg("loading permit counts from csv")
	}
	return permits.Load(ctx, doc, src, opts)
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
