// Command permitmap-import bulk-loads a permit count CSV into the
// permit_counts table read by permitmap when DATABASE_URL is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"permitmap/internal/db"
	"permitmap/internal/httpapi"
	"permitmap/internal/permits"
)

func main() {
	_ = godotenv.Load()

	csvPath := flag.String("csv", envOr("PERMIT_CSV_PATH", "data/grouped_permit_data.csv"), "permit count CSV to import")
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	truncate := flag.Bool("truncate", false, "replace existing rows instead of appending")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall import timeout")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
	flag.Parse()

	logger := httpapi.NewLogger(*logLevel)

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "permitmap-import: -database-url or DATABASE_URL is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	n, err := run(ctx, logger, *csvPath, *databaseURL, *truncate)
	if err != nil {
		logger.Fatal().Err(err).Msg("import failed")
	}
	logger.Info().Int64("rows", n).Str("csv", *csvPath).Msg("import complete")
}

func run(ctx context.Context, logger zerolog.Logger, csvPath, databaseURL string, truncate bool) (int64, error) {
	recs, err := permits.CSVSource{Path: csvPath}.Records(ctx)
	if err != nil {
		return 0, err
	}
	logger.Info().Int("records", len(recs)).Msg("read csv")

	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	var copied int64
	err = pool.InTx(ctx, func(tx pgx.Tx) error {
		q := pool.Queries().WithTx(tx)
		if err := q.CreatePermitCountsTable(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		if truncate {
			if err := q.TruncatePermitCounts(ctx); err != nil {
				return fmt.Errorf("truncate: %w", err)
			}
		}
		n, err := q.CopyPermitCounts(ctx, permits.ToPermitCounts(recs))
		if err != nil {
			return fmt.Errorf("copy: %w", err)
		}
		copied = n
		return nil
	})
	return copied, err
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
