package query

import (
	"context"
	"database/sql"

	"query-api/pkg/db"
)

// Runner executes SQL text with positional parameters and returns every row.
type Runner interface {
	Run(ctx context.Context, sqlText string, params []string) ([]db.Row, error)
}

type Repository struct {
	Db *db.Db
}

func NewRepository(db *db.Db) *Repository {
	return &Repository{Db: db}
}

// Run binds params through the driver, never by formatting them into the
// SQL text. Each call is its own transaction on its own pooled connection.
func (r *Repository) Run(ctx context.Context, sqlText string, params []string) ([]db.Row, error) {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}

	var out []db.Row
	err := r.Db.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out, err = db.ScanRows(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
