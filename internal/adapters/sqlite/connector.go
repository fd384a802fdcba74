// Package sqlite opens physical SQLite connections for the pool using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Connector hands out dedicated connections from a database/sql handle
// that keeps no idle connections, so each Close really closes the
// physical connection and the pool above stays in charge of reuse.
type Connector struct {
	db  *sql.DB
	dsn string
	log zerolog.Logger
}

var _ ports.Connector = (*Connector)(nil)

// NewConnector opens a handle for dsn, a file path or "file:" URI.
func NewConnector(dsn string, baseLogger *zerolog.Logger) (*Connector, error) {
	log := baseLogger.With().Str("component", "sqlite").Logger()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Error().Err(err).Str("dsn", dsn).Msg("Failed to open database")
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	db.SetMaxIdleConns(0)
	return &Connector{db: db, dsn: dsn, log: log}, nil
}

// Connect opens a new physical connection.
func (c *Connector) Connect(ctx context.Context) (ports.RawConn, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		c.log.Error().Err(err).Str("dsn", c.dsn).Msg("Failed to connect to database")
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.log.Debug().Str("dsn", c.dsn).Msg("Database connection established")
	return &RawConn{conn: conn}, nil
}

// Close releases the database handle. Connections handed out earlier
// must be closed first.
func (c *Connector) Close() error {
	return c.db.Close()
}

// RawConn adapts a dedicated *sql.Conn to ports.RawConn.
type RawConn struct {
	conn *sql.Conn
}

// Conn exposes the underlying connection, e.g. for queries that return rows.
func (r *RawConn) Conn() *sql.Conn { return r.conn }

func (r *RawConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *RawConn) Ping(ctx context.Context) error { return r.conn.PingContext(ctx) }

func (r *RawConn) Close(ctx context.Context) error { return r.conn.Close() }

// ForeignKeys is a connect listener that turns on foreign key enforcement,
// which SQLite leaves off for every new connection.
func ForeignKeys(ctx context.Context, args event.Args) (event.Args, error) {
	raw, ok := args[0].(ports.RawConn)
	if !ok {
		return nil, fmt.Errorf("foreign keys: connection is %T", args[0])
	}
	_, err := raw.Exec(ctx, "PRAGMA foreign_keys = ON")
	return nil, err
}

// IsConstraintViolation reports whether err is any SQLite constraint
// failure: unique, primary key, foreign key, not null or check.
func IsConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// The primary result code lives in the low byte of extended codes.
	return sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT
}
