package query

import (
	"context"
	"time"

	"query-api/internal/catalog"
	"query-api/pkg/db"
	"query-api/pkg/logger"
	"query-api/pkg/telemetry"
)

type Service struct {
	catalog *catalog.Catalog
	runner  Runner
	timeout time.Duration
}

// NewService wires the catalog to a runner. A zero timeout leaves query
// duration bounded only by the request context and the driver.
func NewService(c *catalog.Catalog, runner Runner, timeout time.Duration) *Service {
	return &Service{catalog: c, runner: runner, timeout: timeout}
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Execute resolves name in the catalog and runs it once. There is no retry.
func (s *Service) Execute(ctx context.Context, name string, params []string) (*Result, error) {
	q, ok := s.catalog.Lookup(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Ctx(ctx).Debug().Str("query", name).Int("params", len(params)).Msg("Executing query")

	start := time.Now()
	rows, err := s.runner.Run(ctx, q.SQL, params)
	telemetry.RecordQuery(name, time.Since(start), err)
	if err != nil {
		return nil, &DatabaseError{Name: name, Err: err}
	}
	if rows == nil {
		rows = []db.Row{}
	}

	logger.Ctx(ctx).Debug().Str("query", name).Int("rows", len(rows)).Msg("Query returned results")
	return &Result{Query: q, Rows: rows}, nil
}
