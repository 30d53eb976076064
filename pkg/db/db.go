package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/SAP/go-hdb/driver"
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"query-api/configs"
	"query-api/pkg/logger"
)

// ErrPoolInit is returned when the pool cannot be opened or the database
// does not answer the startup probe.
var ErrPoolInit = errors.New("database pool init failed")

const probeTimeout = 5 * time.Second

// Db is the process-wide connection pool.
type Db struct {
	*sql.DB
	Driver string
}

// sqlDriverName maps the configured driver onto the name registered with
// database/sql.
func sqlDriverName(driver string) (string, error) {
	switch driver {
	case "", "postgres":
		return "pgx", nil
	case "sqlserver":
		return "sqlserver", nil
	case "hdb":
		return "hdb", nil
	case "duckdb":
		return "duckdb", nil
	}
	return "", fmt.Errorf("unsupported db driver %q", driver)
}

func buildConnString(cfg configs.DbConfig) (string, error) {
	host := cfg.Server
	if cfg.Port > 0 {
		host = cfg.Server + ":" + strconv.Itoa(cfg.Port)
	}

	switch cfg.Driver {
	case "", "postgres":
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   host,
			Path:   "/" + cfg.Database,
		}
		q := url.Values{}
		if cfg.SSLMode != "" {
			q.Set("sslmode", cfg.SSLMode)
		}
		q.Set("connect_timeout", strconv.Itoa(int(probeTimeout.Seconds())))
		u.RawQuery = q.Encode()
		return u.String(), nil

	case "sqlserver":
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   host,
		}
		q := url.Values{}
		q.Set("database", cfg.Database)
		q.Set("encrypt", "disable")
		u.RawQuery = q.Encode()
		return u.String(), nil

	case "hdb":
		u := &url.URL{
			Scheme: "hdb",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   host,
		}
		if cfg.Database != "" {
			q := url.Values{}
			q.Set("databaseName", cfg.Database)
			u.RawQuery = q.Encode()
		}
		return u.String(), nil

	case "duckdb":
		if cfg.Database == "" {
			return ":memory:", nil
		}
		return cfg.Database, nil
	}
	return "", fmt.Errorf("unsupported db driver %q", cfg.Driver)
}

// NewConnection opens the pool and probes it with SELECT 1. Any failure is
// wrapped in ErrPoolInit.
func NewConnection(cfg *configs.Config) (*Db, error) {
	dbCfg := cfg.DbConfig

	driverName, err := sqlDriverName(dbCfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolInit, err)
	}
	connString, err := buildConnString(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolInit, err)
	}

	db, err := sql.Open(driverName, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolInit, err)
	}

	db.SetMaxOpenConns(dbCfg.MaxOpenConns)
	db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)

	conn := &Db{DB: db, Driver: dbCfg.Driver}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := conn.Probe(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrPoolInit, err)
	}

	logger.Info().
		Str("driver", dbCfg.Driver).
		Str("host", dbCfg.Server).
		Str("database", dbCfg.Database).
		Int("max_open_conns", dbCfg.MaxOpenConns).
		Msg("Database connection pool created successfully")

	return conn, nil
}

// Probe runs SELECT 1 on a pooled connection.
func (db *Db) Probe(ctx context.Context) error {
	var one int
	return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// WithConn checks a connection out of the pool for the duration of fn. The
// connection goes back to the pool on every exit path.
func (db *Db) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	logger.Ctx(ctx).Debug().Msg("Retrieved connection from pool")
	defer func() {
		_ = conn.Close()
		logger.Ctx(ctx).Debug().Msg("Returned connection to pool")
	}()
	return fn(conn)
}

// WithTx runs fn inside a transaction on a dedicated connection. The
// transaction commits when fn returns nil and rolls back otherwise,
// including when fn panics.
func (db *Db) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return db.WithConn(ctx, func(conn *sql.Conn) (err error) {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
			if err != nil {
				if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
					logger.Ctx(ctx).Warn().Err(rbErr).Msg("Rollback failed")
				}
				logger.Ctx(ctx).Error().Err(err).Msg("Database transaction rolled back")
			}
		}()

		if err = fn(tx); err != nil {
			return err
		}
		if err = tx.Commit(); err != nil {
			return err
		}
		logger.Ctx(ctx).Debug().Msg("Database transaction committed")
		return nil
	})
}
