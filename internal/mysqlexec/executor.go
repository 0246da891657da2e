// Package mysqlexec implements the Executor's MySQL access layer: open (or
// reuse) a pooled connection to the local MySQL instance and run exactly
// one statement per call, returning either a row set or a write
// acknowledgement (spec §4.4).
//
// Pool tuning mirrors proxy-dblb/internal/handlers/mysql.go#initSQLPools.
package mysqlexec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Default credentials (cmd/executor uses them as config defaults, which a
// config file or environment variable can override), per spec §6: user "replica", password
// "replica_password", database "sakila".
const (
	DefaultUser     = "replica"
	DefaultPassword = "replica_password"
	DefaultDatabase = "sakila"
)

// PoolConfig tunes the underlying *sql.DB connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig matches the defaults used across MarchProxy's protocol
// handlers.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Executor runs queries against a local MySQL instance.
type Executor struct {
	db *sql.DB
}

// Open builds the DSN from host/user/password/database and opens a pooled
// connection, matching the DSN shape
// "user:pass@tcp(host:port)/db?parseTime=true&timeout=10s".
func Open(host string, port int, user, password, database string, pool PoolConfig) (*Executor, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=10s",
		user, password, host, port, database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysqlexec: opening connection: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	return &Executor{db: db}, nil
}

// Close releases the underlying connection pool.
func (e *Executor) Close() error {
	return e.db.Close()
}

// Result is either a row set (reads) or a write acknowledgement -- never
// both, matching the "{result:[...]} | {message}" either/or shape in spec
// §6's wire table. Rows is non-nil (possibly empty) for selects, nil for
// writes; MarshalJSON picks the matching field so a zero-row select still
// serializes "result" as [] rather than omitting the key, while a write
// response never grows a stray "result" key.
type Result struct {
	Rows    []map[string]interface{}
	Message string
}

func (r *Result) MarshalJSON() ([]byte, error) {
	if r.Rows != nil {
		return json.Marshal(struct {
			Rows []map[string]interface{} `json:"result"`
		}{r.Rows})
	}
	return json.Marshal(struct {
		Message string `json:"message"`
	}{r.Message})
}

// Execute runs a single statement end-to-end: acquire a connection,
// execute, and release on every exit path (spec §5's resource discipline).
// isSelect selects the query-vs-exec code path; it's derived from the
// envelope's "type" field rather than re-parsed here, since the Proxy
// already classified it.
func (e *Executor) Execute(ctx context.Context, query string, isSelect bool) (*Result, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("mysqlexec: acquiring connection: %w", err)
	}
	defer conn.Close()

	if isSelect {
		return runSelect(ctx, conn, query)
	}
	return runWrite(ctx, conn, query)
}

func runSelect(ctx context.Context, conn *sql.Conn, query string) (*Result, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysqlexec: query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("mysqlexec: reading columns: %w", err)
	}

	out := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("mysqlexec: scanning row: %w", err)
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = decodeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysqlexec: iterating rows: %w", err)
	}

	return &Result{Rows: out}, nil
}

func runWrite(ctx context.Context, conn *sql.Conn, query string) (*Result, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mysqlexec: beginning transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("mysqlexec: exec failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("mysqlexec: commit failed: %w", err)
	}

	return &Result{Message: "Query executed successfully"}, nil
}

// decodeValue converts driver-returned []byte (MySQL's usual representation
// for TEXT/VARCHAR/DECIMAL columns) into a plain string so it marshals
// cleanly to JSON.
func decodeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
