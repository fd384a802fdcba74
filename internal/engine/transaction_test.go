package engine

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/events"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var txEvents = []string{
	events.Begin, events.Commit, events.Rollback,
	events.Savepoint, events.ReleaseSavepoint, events.RollbackSavepoint,
	events.BeginTwoPhase, events.PrepareTwoPhase, events.CommitTwoPhase, events.RollbackTwoPhase,
}

func TestTransaction_BeginCommit(t *testing.T) {
	h := newHarness(t)
	var seen []string
	h.trace(t, &seen, txEvents...)
	ctx := context.Background()

	conn := h.connect(t)
	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	_, err = conn.Begin(ctx)
	assert.ErrorIs(t, err, ErrTransactionActive)

	_, err = conn.Execute(ctx, "INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.False(t, tx.Active())
	assert.ErrorIs(t, tx.Commit(ctx), ErrTransactionInactive)

	assert.Equal(t, []string{events.Begin, events.Commit}, seen)
	assert.Equal(t, []string{"BEGIN", "INSERT INTO t VALUES (1)", "COMMIT"}, h.connector.last().statements())
}

func TestTransaction_Savepoints(t *testing.T) {
	h := newHarness(t)
	var seen []string
	h.trace(t, &seen, txEvents...)
	ctx := context.Background()

	var released []any
	h.listen(t, h.engine, events.ReleaseSavepoint, func(ctx context.Context, args event.Args) (event.Args, error) {
		released = append(released, args[1], args[2])
		return nil, nil
	})

	conn := h.connect(t)
	// No open transaction: the root one is started implicitly.
	sp1, err := conn.BeginNested(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sp_1", sp1.Name())
	root := sp1.Parent()
	require.NotNil(t, root)

	sp2, err := conn.BeginNested(ctx)
	require.NoError(t, err)
	assert.Same(t, sp1, sp2.Parent())

	require.NoError(t, sp2.Rollback(ctx))
	require.NoError(t, sp1.Commit(ctx))
	require.NoError(t, root.Rollback(ctx))

	assert.Equal(t, []string{
		events.Begin,
		events.Savepoint,
		events.Savepoint,
		events.RollbackSavepoint,
		events.ReleaseSavepoint,
		events.Rollback,
	}, seen)
	assert.Equal(t, []any{"sp_1", root}, released)
	assert.Equal(t, []string{
		"BEGIN",
		"SAVEPOINT sp_1",
		"SAVEPOINT sp_2",
		"ROLLBACK TO SAVEPOINT sp_2",
		"RELEASE SAVEPOINT sp_1",
		"ROLLBACK",
	}, h.connector.last().statements())
}

func TestTransaction_RootEndDeactivatesSavepoints(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.connect(t)

	root, err := conn.Begin(ctx)
	require.NoError(t, err)
	sp, err := conn.BeginNested(ctx)
	require.NoError(t, err)

	require.NoError(t, root.Commit(ctx))
	assert.False(t, sp.Active())
	assert.ErrorIs(t, sp.Rollback(ctx), ErrTransactionInactive)

	_, err = conn.Begin(ctx)
	assert.NoError(t, err)
}

func TestTransaction_TwoPhase(t *testing.T) {
	h := newHarness(t)
	var seen []string
	h.trace(t, &seen, txEvents...)
	var committed []any
	h.listen(t, h.engine, events.CommitTwoPhase, func(ctx context.Context, args event.Args) (event.Args, error) {
		committed = append(committed, args[1], args[2])
		return nil, nil
	})
	ctx := context.Background()

	conn := h.connect(t)
	tx, err := conn.BeginTwoPhase(ctx, "xid-1")
	require.NoError(t, err)
	assert.Equal(t, "xid-1", tx.XID())
	require.NoError(t, tx.Prepare(ctx))
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, []string{events.BeginTwoPhase, events.PrepareTwoPhase, events.CommitTwoPhase}, seen)
	assert.Equal(t, []any{"xid-1", true}, committed)
	assert.Equal(t, []string{"BEGIN", "PREPARE TRANSACTION 'xid-1'", "COMMIT PREPARED 'xid-1'"}, h.connector.last().statements())
}

func TestTransaction_TwoPhaseRollbackUnprepared(t *testing.T) {
	h := newHarness(t)
	var prepared []any
	h.listen(t, h.engine, events.RollbackTwoPhase, func(ctx context.Context, args event.Args) (event.Args, error) {
		prepared = append(prepared, args[2])
		return nil, nil
	})
	ctx := context.Background()

	conn := h.connect(t)
	tx, err := conn.BeginTwoPhase(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, tx.XID())
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, []any{false}, prepared)
	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, h.connector.last().statements())
}

func TestTransaction_PrepareRequiresTwoPhase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx, err := h.connect(t).Begin(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, tx.Prepare(ctx), ErrNotTwoPhase)
}

func TestTransaction_ListenerErrorLeavesTransactionOpen(t *testing.T) {
	h := newHarness(t)
	blocked := errors.New("commit blocked")
	l := h.listen(t, h.engine, events.Commit, func(ctx context.Context, args event.Args) (event.Args, error) {
		return nil, blocked
	})
	ctx := context.Background()

	conn := h.connect(t)
	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, tx.Commit(ctx), blocked)
	assert.True(t, tx.Active())

	require.NoError(t, l.Remove())
	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, []string{"BEGIN", "COMMIT"}, h.connector.last().statements())
}

func TestConnection_CloseRollsBackWithoutEvents(t *testing.T) {
	h := newHarness(t)
	var seen []string
	h.trace(t, &seen, txEvents...)
	ctx := context.Background()

	conn, err := h.engine.Connect(ctx)
	require.NoError(t, err)
	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	assert.False(t, tx.Active())
	assert.Equal(t, []string{events.Begin}, seen)
	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, h.connector.last().statements())
}
