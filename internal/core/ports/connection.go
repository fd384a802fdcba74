package ports

import "context"

// RawConn is one physical database connection, the "DB-API connection"
// handed to pool listeners.
type RawConn interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Ping checks the connection is alive.
	Ping(ctx context.Context) error

	Close(ctx context.Context) error
}

// Connector opens new physical connections for a pool.
type Connector interface {
	Connect(ctx context.Context) (RawConn, error)
}

// Executor runs statements; schema operations issue their DDL through it.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}
