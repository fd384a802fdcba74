// Package postgres opens physical PostgreSQL connections for the pool.
package postgres

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Connector dials one pgx connection per Connect call.
type Connector struct {
	config *pgx.ConnConfig
	log    zerolog.Logger
}

var _ ports.Connector = (*Connector)(nil)

// NewConnector parses connString. No connection is opened until Connect.
func NewConnector(connString string, baseLogger *zerolog.Logger) (*Connector, error) {
	log := baseLogger.With().Str("component", "postgres").Logger()

	config, err := pgx.ParseConfig(connString)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse DB connection string")
		return nil, err
	}
	return &Connector{config: config, log: log}, nil
}

// Connect opens and pings a new connection.
func (c *Connector) Connect(ctx context.Context) (ports.RawConn, error) {
	conn, err := pgx.ConnectConfig(ctx, c.config.Copy())
	if err != nil {
		c.log.Error().Err(err).Str("host", c.config.Host).Msg("Failed to connect to database")
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		c.log.Error().Err(err).Msg("Failed to ping database")
		_ = conn.Close(ctx)
		return nil, err
	}

	c.log.Debug().Str("host", c.config.Host).Uint32("pid", conn.PgConn().PID()).Msg("Database connection established")
	return &RawConn{conn: conn}, nil
}

// RawConn adapts a *pgx.Conn to ports.RawConn.
type RawConn struct {
	conn *pgx.Conn
}

// Conn exposes the underlying pgx connection, e.g. for queries that return rows.
func (r *RawConn) Conn() *pgx.Conn { return r.conn }

func (r *RawConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *RawConn) Ping(ctx context.Context) error { return r.conn.Ping(ctx) }

func (r *RawConn) Close(ctx context.Context) error { return r.conn.Close(ctx) }

// IsDisconnect reports whether err means the server connection is gone:
// the connection closed underneath us or the server is shutting down.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exception; 57P01..57P03 are shutdown codes.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	return pgconn.SafeToRetry(err) || errors.Is(err, pgx.ErrTxClosed)
}

// HandleDisconnect is a handle_error listener that marks driver errors
// IsDisconnect recognizes as disconnections. The engine then invalidates
// the pooled connection instead of returning it.
func HandleDisconnect(ctx context.Context, args event.Args) (event.Args, error) {
	err, _ := args[2].(error)
	if IsDisconnect(err) {
		return nil, event.Disconnected(err)
	}
	return nil, nil
}
