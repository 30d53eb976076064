// Package metrics serves the fixed monitoring routes. Each route is bound to
// one catalog query and answers with {status, data}.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"query-api/internal/query"
	"query-api/pkg/res"
)

const (
	LastHourQuery = "get_last_hour_metrics"
	DailyQuery    = "get_daily_average"
	ByNameQuery   = "get_metric_by_name"
)

type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type ControllerDeps struct {
	*query.Service
	Cache func(http.Handler) http.Handler
}

type Controller struct {
	*query.Service
}

func NewController(router chi.Router, deps ControllerDeps) *Controller {
	c := &Controller{Service: deps.Service}

	cached := router
	if deps.Cache != nil {
		cached = router.With(deps.Cache)
	}
	cached.Get("/api/metrics", c.GetMetrics())
	cached.Get("/api/metrics/daily", c.GetDailyMetrics())
	cached.Get("/api/metrics/{metric_name}", c.GetMetricByName())
	return c
}

func (c *Controller) GetMetrics() http.HandlerFunc {
	return c.run(LastHourQuery, nil)
}

func (c *Controller) GetDailyMetrics() http.HandlerFunc {
	return c.run(DailyQuery, nil)
}

func (c *Controller) GetMetricByName() http.HandlerFunc {
	return c.run(ByNameQuery, func(r *http.Request) []string {
		return []string{chi.URLParam(r, "metric_name")}
	})
}

func (c *Controller) run(name string, params func(r *http.Request) []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args []string
		if params != nil {
			args = params(r)
		}

		result, err := c.Service.Execute(r.Context(), name, args)
		if err != nil {
			query.RespondError(w, r, err)
			return
		}
		res.Json(w, Response{Status: res.StatusSuccess, Data: result.Rows}, http.StatusOK)
	}
}
