package main

import (
	"DBHooks/internal/adapters/eventbus"
	"DBHooks/internal/adapters/eventlog"
	"DBHooks/internal/adapters/postgres"
	"DBHooks/internal/adapters/security"
	"DBHooks/internal/adapters/sqlite"
	"DBHooks/internal/adapters/tracing"
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"DBHooks/internal/engine"
	"DBHooks/internal/events"
	"DBHooks/internal/pool"
	"DBHooks/internal/schema"
	"DBHooks/internal/shared/config"
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
)

var demoTable string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Create a table, write rows in nested transactions and drop it, with hooks attached.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runDemo(ctx)
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoTable, "table", "dbhooks_demo", "name of the scratch table")
	rootCmd.AddCommand(demoCmd)
}

func newConnector() (ports.Connector, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		c, err := sqlite.NewConnector(cfg.Database.URL, &baseLogger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		c, err := postgres.NewConnector(cfg.Database.URL, &baseLogger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
}

func runDemo(ctx context.Context) error {
	log := baseLogger.With().Str("component", "demo").Logger()

	connector, closeConnector, err := newConnector()
	if err != nil {
		return err
	}
	defer closeConnector()

	p := pool.New(connector, &baseLogger,
		pool.WithSize(cfg.Pool.Size),
		pool.WithCheckoutRetries(cfg.Pool.CheckoutRetries),
	)
	eng := engine.New(p, &baseLogger)
	defer func() { _ = eng.Pool().Close(context.Background()) }()

	reg := events.NewRegistry(&baseLogger)
	if err := attachHooks(ctx, reg, eng); err != nil {
		return err
	}

	// Route completed statements to an async subscriber.
	bus := eventbus.NewInMemoryBus(&baseLogger)
	var executed atomic.Int64
	bus.Subscribe(eventbus.Topic(events.Engine, events.AfterExecute), func(ctx context.Context, e ports.Event) error {
		executed.Add(1)
		return nil
	})
	if _, err := eventbus.Forward(reg, bus, events.Engine, eng, events.AfterExecute); err != nil {
		return err
	}

	// Tag every statement with its origin.
	if _, err := reg.Listen(eng, events.BeforeCursorExecute, func(ctx context.Context, args event.Args) (event.Args, error) {
		return event.Args{args[2].(string) + " /* dbhooks demo */", args[3]}, nil
	}, event.WithRetval()); err != nil {
		return err
	}

	md := schema.NewMetaData()
	table, err := md.Table(demoTable,
		schema.Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
		schema.Column{Name: "label", Type: "TEXT", NotNull: true},
	)
	if err != nil {
		return err
	}
	if cfg.EncryptionKey != "" {
		if err := encryptLabels(reg, eng, table); err != nil {
			return err
		}
	}
	if _, err := reg.Listen(table, events.AfterCreate, schema.DDL("CREATE INDEX ix_%(table)s_label ON %(table)s (label)")); err != nil {
		return err
	}

	conn, err := eng.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if err := md.CreateAll(ctx, conn); err != nil {
		return err
	}
	defer func() {
		if err := md.DropAll(context.Background(), conn); err != nil {
			log.Error().Err(err).Msg("Failed to drop demo schema")
		}
	}()

	inserted, err := writeRows(ctx, conn, table)
	if err != nil {
		return err
	}

	// A fresh pool must keep every pool listener registered through the engine.
	if err := eng.Dispose(ctx); err != nil {
		return err
	}

	bus.Wait()
	log.Info().
		Int64("rows_kept", inserted).
		Int64("statements", executed.Load()).
		Int("pool_listeners", len(events.Pool.Listeners(eng, events.Checkout))).
		Msg("Demo finished")
	fmt.Printf("kept %d rows in %s; %d statements observed\n", inserted, table.Name, executed.Load())
	return nil
}

func attachHooks(ctx context.Context, reg *event.Registry, eng *engine.Engine) error {
	if _, err := reg.Listen(eng, events.Checkout, pool.PrePing); err != nil {
		return err
	}
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		if _, err := reg.Listen(eng, events.Connect, sqlite.ForeignKeys); err != nil {
			return err
		}
	default:
		if _, err := reg.Listen(eng, events.HandleError, postgres.HandleDisconnect); err != nil {
			return err
		}
	}

	sqlLog := eventlog.New(&baseLogger)
	if cfg.EchoStatements {
		if _, err := sqlLog.EchoStatements(reg, eng); err != nil {
			return err
		}
	}
	if _, err := sqlLog.PoolLifecycle(reg, eng); err != nil {
		return err
	}

	if cfg.TracingEnabled {
		shutdown, err := tracing.Setup(ctx, "dbhooks", cfg.OTelEndpoint)
		if err != nil {
			return err
		}
		cobra.OnFinalize(func() { _ = shutdown(context.Background()) })
		system := "postgresql"
		if cfg.Database.Driver == config.DriverSQLite {
			system = "sqlite"
		}
		if _, err := tracing.New(nil, system, &baseLogger).Attach(reg, eng); err != nil {
			return err
		}
	}
	return nil
}

// encryptLabels stores the label column encrypted.
func encryptLabels(reg *event.Registry, eng *engine.Engine, table *schema.Table) error {
	cipher, err := security.NewParamCipherFromHex(cfg.EncryptionKey, &baseLogger)
	if err != nil {
		return err
	}
	rule := security.Rule{Prefix: "INSERT INTO " + table.Name, Positions: []int{1}, Scope: table.Name + ".label"}
	_, err = reg.Listen(eng, events.BeforeCursorExecute, security.EncryptParams(cipher, rule), event.WithRetval())
	return err
}

// writeRows inserts three rows, rolls one back through a savepoint and
// returns how many were kept.
func writeRows(ctx context.Context, conn *engine.Connection, table *schema.Table) (int64, error) {
	insert := fmt.Sprintf("INSERT INTO %s (id, label) VALUES ($1, $2)", table.Name)
	if cfg.Database.Driver == config.DriverSQLite {
		insert = fmt.Sprintf("INSERT INTO %s (id, label) VALUES (?, ?)", table.Name)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	res, err := conn.ExecuteMany(ctx, insert, [][]any{{1, "first"}, {2, "second"}})
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	kept := res.RowsAffected

	sp, err := conn.BeginNested(ctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if _, err := conn.Execute(ctx, insert, 3, "discarded"); err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if err := sp.Rollback(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	return kept, tx.Commit(ctx)
}
