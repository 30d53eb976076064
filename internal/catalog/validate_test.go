package catalog

import "testing"

func TestValidateQueryReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"select", "SELECT 1 AS ok", false},
		{"trailing semicolon", "SELECT * FROM metrics;", false},
		{"cte", "WITH x AS (SELECT 1) SELECT * FROM x", false},
		{"leading comment", "-- hourly\nSELECT avg(value) FROM metrics", false},
		{"block comment", "/* drop table */ SELECT 1", false},
		{"keyword in literal", "SELECT * FROM audit WHERE action = 'delete'", false},
		{"keyword in quoted identifier", `SELECT "update" FROM t`, false},
		{"column suffix", "SELECT last_update FROM t", false},
		{"insert", "INSERT INTO t VALUES (1)", true},
		{"multi statement", "SELECT 1; DROP TABLE t", true},
		{"write inside cte", "WITH d AS (DELETE FROM t RETURNING *) SELECT * FROM d", true},
		{"empty", "  -- only a comment\n", true},
		{"exec", "EXEC sp_who", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQueryReadOnly(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQueryReadOnly(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestCatalogValidateReadOnly(t *testing.T) {
	c, _ := New(
		Query{Name: "ok", SQL: "SELECT 1"},
		Query{Name: "bad", SQL: "UPDATE t SET a = 1"},
	)
	if err := c.ValidateReadOnly(); err == nil {
		t.Fatal("expected error for write query")
	}
}
