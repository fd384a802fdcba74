package pool

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"context"
)

// PrePing is a checkout listener that pings the connection and reports a
// disconnection when the ping fails, so the pool retries with a fresh one.
func PrePing(ctx context.Context, args event.Args) (event.Args, error) {
	raw, ok := args[0].(ports.RawConn)
	if !ok {
		return nil, nil
	}
	if err := raw.Ping(ctx); err != nil {
		return nil, event.Disconnected(err)
	}
	return nil, nil
}
