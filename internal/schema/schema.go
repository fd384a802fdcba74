// Package schema holds the schema objects DDL events are fired on.
package schema

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"DBHooks/internal/events"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrDuplicateTable = errors.New("table already defined")

// Column is a column definition rendered verbatim into CREATE TABLE.
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
	NotNull    bool
}

func (c Column) sql() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(c.Type)
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	} else if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	return b.String()
}

// Table is a table definition belonging to a MetaData.
type Table struct {
	event.Hooks

	Name     string
	Columns  []Column
	metadata *MetaData
}

var _ event.Target = (*Table)(nil)

// EventClass implements event.Target.
func (t *Table) EventClass() *event.Class { return events.TableClass }

// MetaData returns the owning container.
func (t *Table) MetaData() *MetaData { return t.metadata }

// CreateSQL renders the CREATE TABLE statement.
func (t *Table) CreateSQL() string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, c.sql())
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.Name, strings.Join(defs, ", "))
}

// DropSQL renders the DROP TABLE statement.
func (t *Table) DropSQL() string { return "DROP TABLE " + t.Name }

// Create issues CREATE TABLE on conn between before_create and after_create.
func (t *Table) Create(ctx context.Context, conn ports.Executor) error {
	return t.run(ctx, conn, events.BeforeCreate, events.AfterCreate, t.CreateSQL(), map[string]any{"metadata_operation": false})
}

// Drop issues DROP TABLE on conn between before_drop and after_drop.
func (t *Table) Drop(ctx context.Context, conn ports.Executor) error {
	return t.run(ctx, conn, events.BeforeDrop, events.AfterDrop, t.DropSQL(), map[string]any{"metadata_operation": false})
}

func (t *Table) run(ctx context.Context, conn ports.Executor, before, after, sql string, extra map[string]any) error {
	if _, err := events.DDL.Fire(ctx, t, before, t, conn, extra); err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("table %s: %w", t.Name, err)
	}
	_, err := events.DDL.Fire(ctx, t, after, t, conn, extra)
	return err
}

// MetaData is a collection of tables created and dropped together.
type MetaData struct {
	event.Hooks

	mu     sync.RWMutex
	tables []*Table
	byName map[string]*Table
}

var _ event.Target = (*MetaData)(nil)

func NewMetaData() *MetaData {
	return &MetaData{byName: make(map[string]*Table)}
}

// EventClass implements event.Target.
func (m *MetaData) EventClass() *event.Class { return events.MetaDataClass }

// Table defines a new table in m.
func (m *MetaData) Table(name string, cols ...Column) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, name)
	}
	t := &Table{Name: name, Columns: cols, metadata: m}
	m.tables = append(m.tables, t)
	m.byName[name] = t
	return t, nil
}

// Lookup returns the table called name.
func (m *MetaData) Lookup(name string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.byName[name]
	return t, ok
}

// Tables returns the tables in definition order.
func (m *MetaData) Tables() []*Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Table(nil), m.tables...)
}

// CreateAll creates every table in definition order. MetaData-level
// before_create and after_create wrap the per-table events.
func (m *MetaData) CreateAll(ctx context.Context, conn ports.Executor) error {
	tables := m.Tables()
	return m.runAll(ctx, conn, events.BeforeCreate, events.AfterCreate, tables, func(t *Table, extra map[string]any) error {
		return t.run(ctx, conn, events.BeforeCreate, events.AfterCreate, t.CreateSQL(), extra)
	})
}

// DropAll drops every table in reverse definition order.
func (m *MetaData) DropAll(ctx context.Context, conn ports.Executor) error {
	tables := m.Tables()
	for i, j := 0, len(tables)-1; i < j; i, j = i+1, j-1 {
		tables[i], tables[j] = tables[j], tables[i]
	}
	return m.runAll(ctx, conn, events.BeforeDrop, events.AfterDrop, tables, func(t *Table, extra map[string]any) error {
		return t.run(ctx, conn, events.BeforeDrop, events.AfterDrop, t.DropSQL(), extra)
	})
}

func (m *MetaData) runAll(ctx context.Context, conn ports.Executor, before, after string, tables []*Table, each func(*Table, map[string]any) error) error {
	extra := map[string]any{"tables": tables}
	if _, err := events.DDL.Fire(ctx, m, before, m, conn, extra); err != nil {
		return err
	}
	for _, t := range tables {
		if err := each(t, map[string]any{"metadata_operation": true}); err != nil {
			return err
		}
	}
	_, err := events.DDL.Fire(ctx, m, after, m, conn, extra)
	return err
}

// DDL returns a listener that executes stmt on the event's connection.
// When the target is a table, "%(table)s" in stmt is replaced with its name.
func DDL(stmt string) event.Func {
	return func(ctx context.Context, args event.Args) (event.Args, error) {
		conn, ok := args[1].(ports.Executor)
		if !ok {
			return nil, fmt.Errorf("ddl listener: connection is %T", args[1])
		}
		sql := stmt
		if t, ok := args[0].(*Table); ok {
			sql = strings.ReplaceAll(sql, "%(table)s", t.Name)
		}
		_, err := conn.Exec(ctx, sql)
		return nil, err
	}
}
