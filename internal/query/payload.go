package query

import (
	"query-api/internal/catalog"
	"query-api/pkg/db"
)

type Result struct {
	Query catalog.Query
	Rows  []db.Row
}

type QueryResponse struct {
	Status      string   `json:"status"`
	QueryName   string   `json:"query_name"`
	Description string   `json:"description"`
	Data        []db.Row `json:"data"`
}

type CatalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
}

type CatalogResponse struct {
	Status  string         `json:"status"`
	Queries []CatalogEntry `json:"queries"`
}
