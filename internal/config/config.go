package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"permitmap/internal/naming"
)

// Config holds service settings. Values come from an optional YAML file and
// are then overridden by environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Boundaries: a shapefile takes precedence over GeoJSON when set.
	GeoJSONPath   string
	ShapefilePath string
	ZIPField      string

	// Permits: DatabaseURL takes precedence over the CSV file when set.
	PermitCSVPath string
	DatabaseURL   string
	DisplayPrefix string
}

type fileConfig struct {
	HTTPAddr        string `yaml:"http_addr"`
	LogLevel        string `yaml:"log_level"`
	RequestTimeout  string `yaml:"request_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	Boundaries      struct {
		GeoJSON   string `yaml:"geojson"`
		Shapefile string `yaml:"shapefile"`
		ZIPField  string `yaml:"zip_field"`
	} `yaml:"boundaries"`
	Permits struct {
		CSV           string  `yaml:"csv"`
		DatabaseURL   string  `yaml:"database_url"`
		DisplayPrefix *string `yaml:"display_prefix"`
	} `yaml:"permits"`
}

func defaults() fileConfig {
	var fc fileConfig
	fc.HTTPAddr = ":8080"
	fc.LogLevel = "info"
	fc.RequestTimeout = "15s"
	fc.ShutdownTimeout = "10s"
	fc.Boundaries.GeoJSON = "data/Boundaries - ZIP Codes.geojson"
	fc.Boundaries.ZIPField = "zip"
	fc.Permits.CSV = "data/grouped_permit_data.csv"
	return fc
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	fc := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	prefix := naming.DefaultDisplayPrefix
	if fc.Permits.DisplayPrefix != nil {
		prefix = *fc.Permits.DisplayPrefix
	}
	if v, ok := os.LookupEnv("PERMIT_DISPLAY_PREFIX"); ok {
		prefix = v
	}

	cfg := &Config{
		HTTPAddr:      envOr("HTTP_ADDR", fc.HTTPAddr),
		LogLevel:      envOr("LOG_LEVEL", fc.LogLevel),
		GeoJSONPath:   envOr("GEOJSON_PATH", fc.Boundaries.GeoJSON),
		ShapefilePath: envOr("BOUNDARY_SHAPEFILE", fc.Boundaries.Shapefile),
		ZIPField:      envOr("BOUNDARY_ZIP_FIELD", fc.Boundaries.ZIPField),
		PermitCSVPath: envOr("PERMIT_CSV_PATH", fc.Permits.CSV),
		DatabaseURL:   envOr("DATABASE_URL", fc.Permits.DatabaseURL),
		DisplayPrefix: prefix,
	}

	var err error
	if cfg.RequestTimeout, err = parsePositiveDuration("REQUEST_TIMEOUT", envOr("REQUEST_TIMEOUT", fc.RequestTimeout)); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parsePositiveDuration("SHUTDOWN_TIMEOUT", envOr("SHUTDOWN_TIMEOUT", fc.ShutdownTimeout)); err != nil {
		return nil, err
	}

	if cfg.GeoJSONPath == "" && cfg.ShapefilePath == "" {
		return nil, errors.New("one of GEOJSON_PATH or BOUNDARY_SHAPEFILE is required")
	}
	if cfg.PermitCSVPath == "" && cfg.DatabaseURL == "" {
		return nil, errors.New("one of PERMIT_CSV_PATH or DATABASE_URL is required")
	}
	if cfg.ZIPField == "" {
		cfg.ZIPField = "zip"
	}
	return cfg, nil
}

func parsePositiveDuration(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return d, nil
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
