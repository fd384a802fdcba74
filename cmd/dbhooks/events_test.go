package main

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/events"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintCatalogs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalogs(&buf, filterCatalogs([]*event.Catalog{events.DDL, events.Pool, events.Engine}, "pool")))

	out := buf.String()
	assert.Contains(t, out, "pool\n")
	assert.Contains(t, out, "first_connect")
	assert.Contains(t, out, "once")
	assert.NotContains(t, out, "before_execute")
}

func TestPrintCatalogs_RetvalEvents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalogs(&buf, []*event.Catalog{events.Engine}))
	assert.Contains(t, buf.String(), "retval(statement, parameters)")
	assert.Contains(t, buf.String(), "retval(clauseelement, multiparams, params)")
}
