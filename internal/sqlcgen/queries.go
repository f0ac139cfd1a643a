package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const createPermitCountsTable = `-- name: CreatePermitCountsTable :exec
CREATE TABLE IF NOT EXISTS permit_counts (
  issue_date_year    integer NOT NULL,
  permit_type        text    NOT NULL,
  zip_code           integer,
  permit_issue_count bigint  NOT NULL
)
`

func (q *Queries) CreatePermitCountsTable(ctx context.Context) error {
	_, err := q.db.Exec(ctx, createPermitCountsTable)
	return err
}

const truncatePermitCounts = `-- name: TruncatePermitCounts :exec
TRUNCATE permit_counts
`

func (q *Queries) TruncatePermitCounts(ctx context.Context) error {
	_, err := q.db.Exec(ctx, truncatePermitCounts)
	return err
}

const listPermitCounts = `-- name: ListPermitCounts :many
SELECT issue_date_year,
       permit_type,
       zip_code,
       permit_issue_count
FROM permit_counts
ORDER BY issue_date_year ASC, permit_type ASC, zip_code ASC NULLS LAST
`

func (q *Queries) ListPermitCounts(ctx context.Context) ([]PermitCount, error) {
	rows, err := q.db.Query(ctx, listPermitCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PermitCount
	for rows.Next() {
		var i PermitCount
		if err := rows.Scan(&i.IssueDateYear, &i.PermitType, &i.ZipCode, &i.PermitIssueCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CopyPermitCounts bulk-loads rows with the COPY protocol.
func (q *Queries) CopyPermitCounts(ctx context.Context, arg []PermitCount) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"permit_counts"},
		[]string{"issue_date_year", "permit_type", "zip_code", "permit_issue_count"},
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			r := arg[i]
			return []any{r.IssueDateYear, r.PermitType, r.ZipCode, r.PermitIssueCount}, nil
		}),
	)
}
