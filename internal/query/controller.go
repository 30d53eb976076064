package query

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"query-api/pkg/res"
)

type ControllerDeps struct {
	*Service
	// Cache wraps the cached routes. Nil means no caching.
	Cache func(http.Handler) http.Handler
}

type Controller struct {
	*Service
}

func NewController(router chi.Router, deps ControllerDeps) *Controller {
	c := &Controller{Service: deps.Service}

	cached := router
	if deps.Cache != nil {
		cached = router.With(deps.Cache)
	}
	cached.Get("/", c.ListQueries())
	cached.Get("/api/query/{name}", c.RunQuery())
	return c
}

func Endpoint(name string) string {
	return "/api/query/" + name
}

func (c *Controller) ListQueries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queries := c.Service.Catalog().Queries()
		out := CatalogResponse{
			Status:  res.StatusSuccess,
			Queries: make([]CatalogEntry, 0, len(queries)),
		}
		for _, q := range queries {
			out.Queries = append(out.Queries, CatalogEntry{
				Name:        q.Name,
				Description: q.Description,
				Endpoint:    Endpoint(q.Name),
			})
		}
		res.Json(w, out, http.StatusOK)
	}
}

func (c *Controller) RunQuery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		params := r.URL.Query()["params"]

		result, err := c.Service.Execute(r.Context(), name, params)
		if err != nil {
			RespondError(w, r, err)
			return
		}

		res.Json(w, QueryResponse{
			Status:      res.StatusSuccess,
			QueryName:   result.Query.Name,
			Description: result.Query.Description,
			Data:        result.Rows,
		}, http.StatusOK)
	}
}
