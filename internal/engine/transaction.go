package engine

import (
	"DBHooks/internal/events"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type txKind int

const (
	txRoot txKind = iota
	txNested
	txTwoPhase
)

// Transaction is a root transaction, a savepoint, or a two-phase
// transaction on a Connection.
type Transaction struct {
	conn   *Connection
	parent *Transaction
	kind   txKind
	name   string
	xid    string

	mu       sync.Mutex
	active   bool
	prepared bool
}

// Name returns the savepoint name of a nested transaction.
func (t *Transaction) Name() string { return t.name }

// XID returns the identifier of a two-phase transaction.
func (t *Transaction) XID() string { return t.xid }

// Parent returns the enclosing transaction of a savepoint.
func (t *Transaction) Parent() *Transaction { return t.parent }

// Active reports whether the transaction can still be committed or rolled back.
func (t *Transaction) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Transaction) deactivate() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

// Begin starts the root transaction.
func (c *Connection) Begin(ctx context.Context) (*Transaction, error) {
	return c.beginRoot(ctx, txRoot, "")
}

// BeginTwoPhase starts a two-phase transaction. An empty xid gets a
// generated one.
func (c *Connection) BeginTwoPhase(ctx context.Context, xid string) (*Transaction, error) {
	if xid == "" {
		xid = uuid.NewString()
	}
	return c.beginRoot(ctx, txTwoPhase, xid)
}

func (c *Connection) beginRoot(ctx context.Context, kind txKind, xid string) (*Transaction, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	busy := c.tx != nil
	c.mu.Unlock()
	if busy {
		return nil, ErrTransactionActive
	}

	var err error
	if kind == txTwoPhase {
		_, err = events.Engine.Fire(ctx, c.engine, events.BeginTwoPhase, c, xid)
	} else {
		_, err = events.Engine.Fire(ctx, c.engine, events.Begin, c)
	}
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Exec(ctx, "BEGIN"); err != nil {
		return nil, err
	}

	tx := &Transaction{conn: c, kind: kind, xid: xid, active: true}
	c.mu.Lock()
	c.tx = tx
	c.mu.Unlock()
	return tx, nil
}

// BeginNested opens a savepoint inside the current transaction, starting
// a root transaction first when none is open.
func (c *Connection) BeginNested(ctx context.Context) (*Transaction, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	parent := c.tx
	c.mu.Unlock()
	if parent == nil {
		var err error
		if parent, err = c.Begin(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	c.savepointSeq++
	name := fmt.Sprintf("sp_%d", c.savepointSeq)
	c.mu.Unlock()

	if _, err := events.Engine.Fire(ctx, c.engine, events.Savepoint, c, name); err != nil {
		return nil, err
	}
	if _, err := c.conn.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return nil, err
	}

	tx := &Transaction{conn: c, parent: parent, kind: txNested, name: name, active: true}
	c.mu.Lock()
	c.tx = tx
	c.mu.Unlock()
	return tx, nil
}

// Prepare runs the first phase of a two-phase commit.
func (t *Transaction) Prepare(ctx context.Context) error {
	if t.kind != txTwoPhase {
		return ErrNotTwoPhase
	}
	if !t.Active() {
		return ErrTransactionInactive
	}
	if _, err := events.Engine.Fire(ctx, t.conn.engine, events.PrepareTwoPhase, t.conn, t.xid); err != nil {
		return err
	}
	if _, err := t.conn.conn.Exec(ctx, "PREPARE TRANSACTION "+quoteXID(t.xid)); err != nil {
		return err
	}
	t.mu.Lock()
	t.prepared = true
	t.mu.Unlock()
	return nil
}

// Commit commits the transaction or releases the savepoint.
func (t *Transaction) Commit(ctx context.Context) error {
	return t.end(ctx, true)
}

// Rollback rolls back the transaction or to the savepoint.
func (t *Transaction) Rollback(ctx context.Context) error {
	return t.end(ctx, false)
}

func (t *Transaction) end(ctx context.Context, commit bool) error {
	if !t.Active() {
		return ErrTransactionInactive
	}
	c := t.conn
	t.mu.Lock()
	prepared := t.prepared
	t.mu.Unlock()

	var name, sql string
	var args []any
	switch {
	case t.kind == txNested && commit:
		name, sql, args = events.ReleaseSavepoint, "RELEASE SAVEPOINT "+t.name, []any{c, t.name, t.parent}
	case t.kind == txNested:
		name, sql, args = events.RollbackSavepoint, "ROLLBACK TO SAVEPOINT "+t.name, []any{c, t.name, t.parent}
	case t.kind == txTwoPhase && commit:
		name, sql, args = events.CommitTwoPhase, "COMMIT", []any{c, t.xid, prepared}
		if prepared {
			sql = "COMMIT PREPARED " + quoteXID(t.xid)
		}
	case t.kind == txTwoPhase:
		name, sql, args = events.RollbackTwoPhase, "ROLLBACK", []any{c, t.xid, prepared}
		if prepared {
			sql = "ROLLBACK PREPARED " + quoteXID(t.xid)
		}
	case commit:
		name, sql, args = events.Commit, "COMMIT", []any{c}
	default:
		name, sql, args = events.Rollback, "ROLLBACK", []any{c}
	}

	if _, err := events.Engine.Fire(ctx, c.engine, name, args...); err != nil {
		return err
	}
	if _, err := c.conn.Exec(ctx, sql); err != nil {
		return err
	}

	t.deactivate()
	c.mu.Lock()
	for k := c.tx; k != nil && k != t; k = k.parent {
		k.deactivate()
	}
	if t.kind == txNested {
		c.tx = t.parent
	} else {
		c.tx = nil
	}
	c.mu.Unlock()
	return nil
}

func quoteXID(xid string) string {
	return "'" + strings.ReplaceAll(xid, "'", "''") + "'"
}
