package events

import (
	"DBHooks/internal/core/event"

	"github.com/rs/zerolog"
)

// NewRegistry returns a registry over the DDL, pool and engine catalogs.
func NewRegistry(baseLogger *zerolog.Logger) *event.Registry {
	return event.NewRegistry(baseLogger, DDL, Pool, Engine)
}
