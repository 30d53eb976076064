package query

import (
	"errors"
	"fmt"
	"net/http"

	"query-api/pkg/logger"
	"query-api/pkg/res"
)

var ErrNotFound = errors.New("query not found")

type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Query '%s' not found", e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DatabaseError carries the driver's failure for one execution.
type DatabaseError struct {
	Name string
	Err  error
}

func (e *DatabaseError) Error() string { return e.Err.Error() }

func (e *DatabaseError) Unwrap() error { return e.Err }

// RespondError translates an Execute error into the JSON error envelope.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.Ctx(r.Context())

	var dbErr *DatabaseError
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn().Err(err).Msg("Unknown query requested")
		res.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &dbErr):
		log.Error().Err(dbErr.Err).Str("query", dbErr.Name).Msg("Query execution failed")
		res.Error(w, dbErr.Error(), http.StatusInternalServerError)
	default:
		log.Error().Err(err).Msg("Request failed")
		res.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
