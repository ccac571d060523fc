package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/quarry"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/storage"
	"github.com/quarrydb/quarry/quarry/storage/postgres"
	"github.com/quarrydb/quarry/quarry/storage/sqlite"
)

// ExecResult is the outcome of one executed operation.
type ExecResult struct {
	Op    string `json:"op"`
	Count int64  `json:"count"`
	Rows  []any  `json:"rows,omitempty"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		schemaDir string
		opName    string
		dbPath    string
		driver    string
		dsn       string
		backend   string
		prefix    string
	)

	cmd := &cobra.Command{
		Use:   "exec <query.yaml>",
		Short: "Execute a query file against a database",
		Long: `Compile a YAML query file and execute it against SQLite or
PostgreSQL, printing materialized rows. Mutations (update_all,
delete_all) print the affected-row count, plus rows when the query file
selects returned values.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(rootOpts, execOptions{
				queryPath: args[0],
				schemaDir: schemaDir,
				opName:    opName,
				dbPath:    dbPath,
				driver:    driver,
				dsn:       dsn,
				backend:   backend,
				prefix:    prefix,
			}, cmd)
		},
	}

	cmd.Flags().StringVar(&schemaDir, "schema", "", "CUE schema directory (overrides config)")
	cmd.Flags().StringVar(&opName, "op", "all", "operation (all|update_all|delete_all)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (overrides config)")
	cmd.Flags().StringVar(&driver, "driver", "", "SQLite driver (sqlite3|sqlite)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (overrides config)")
	cmd.Flags().StringVar(&backend, "backend", "", "storage backend (sqlite|postgres)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "source prefix (schema/attach name)")

	return cmd
}

type execOptions struct {
	queryPath string
	schemaDir string
	opName    string
	dbPath    string
	driver    string
	dsn       string
	backend   string
	prefix    string
}

func runExec(rootOpts *RootOptions, eo execOptions, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
	ctx := cmd.Context()

	cfg, err := LoadConfig(rootOpts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}

	schemaDir := eo.schemaDir
	if schemaDir == "" {
		schemaDir = cfg.SchemaDir
	}
	if schemaDir == "" {
		return NewExitError(ExitCommandError, "a schema directory is required (--schema or schema_dir in quarry.yaml)")
	}

	op, err := ParseOp(eo.opName)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing operation", err)
	}

	adapter, err := buildAdapter(eo, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "configuring storage", err)
	}

	catalog, err := schema.LoadDir(schemaDir)
	if err != nil {
		return WrapExitError(ExitFailure, "loading schema", err)
	}
	qf, err := LoadQueryFile(eo.queryPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading query file", err)
	}
	q, err := qf.Build(catalog)
	if err != nil {
		return WrapExitError(ExitFailure, "building query", err)
	}

	if err := adapter.Connect(ctx); err != nil {
		return WrapExitError(ExitCommandError, "connecting", err)
	}
	defer adapter.Close()

	prefix := eo.prefix
	if prefix == "" {
		prefix = cfg.Prefix
	}
	repo := quarry.NewWithConfig(adapter, quarry.Config{Prefix: prefix})

	formatter.VerboseLog("Executing %s over %s via %s", op, qf.From, adapter.Backend())

	result := ExecResult{Op: string(op)}
	switch op {
	case "update_all":
		result.Count, result.Rows, err = repo.UpdateAll(ctx, q, nil)
	case "delete_all":
		result.Count, result.Rows, err = repo.DeleteAll(ctx, q)
	default:
		var rows []any
		rows, err = repo.All(ctx, q)
		result.Rows = rows
		result.Count = int64(len(rows))
	}
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("executing %s", op), err)
	}

	result.Rows = renderRows(result.Rows)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, row := range result.Rows {
		fmt.Fprintf(formatter.Writer, "%v\n", row)
	}
	fmt.Fprintf(formatter.Writer, "--- %d row(s) ---\n", result.Count)
	return nil
}

// buildAdapter picks the storage adapter from flags and config, flags
// winning. The backend defaults to sqlite.
func buildAdapter(eo execOptions, cfg *Config) (storage.Adapter, error) {
	backend := eo.backend
	if backend == "" {
		backend = cfg.Database.Backend
	}
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "sqlite":
		path := eo.dbPath
		if path == "" {
			path = cfg.Database.Path
		}
		if path == "" {
			return nil, fmt.Errorf("sqlite backend needs a database file (--db or database.path)")
		}
		driver := eo.driver
		if driver == "" {
			driver = cfg.Database.Driver
		}
		if driver == "" {
			return sqlite.New(path), nil
		}
		if driver != sqlite.DriverMattn && driver != sqlite.DriverModernc {
			return nil, fmt.Errorf("unknown sqlite driver %q (%s|%s)", driver, sqlite.DriverMattn, sqlite.DriverModernc)
		}
		return sqlite.NewWithDriver(path, driver), nil
	case "postgres":
		dsn := eo.dsn
		if dsn == "" {
			dsn = cfg.Database.DSN
		}
		if dsn == "" {
			return nil, fmt.Errorf("postgres backend needs a connection string (--dsn or database.dsn)")
		}
		if cfg.Database.SearchPath != "" {
			return postgres.NewWithSearchPath(dsn, cfg.Database.SearchPath), nil
		}
		return postgres.New(dsn), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (sqlite|postgres)", backend)
	}
}

// renderRows converts shaped values into JSON-encodable ones: records
// become their field maps and mapping keys become strings.
func renderRows(rows []any) []any {
	if rows == nil {
		return nil
	}
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = renderValue(r)
	}
	return out
}

func renderValue(v any) any {
	switch val := v.(type) {
	case *schema.Record:
		m := make(map[string]any, len(val.Fields)+1)
		for k, fv := range val.Fields {
			m[k] = renderValue(fv)
		}
		m["_record"] = val.Type.Name
		return m
	case []*schema.Record:
		list := make([]any, len(val))
		for i, r := range val {
			list[i] = renderValue(r)
		}
		return list
	case []any:
		list := make([]any, len(val))
		for i, e := range val {
			list[i] = renderValue(e)
		}
		return list
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[fmt.Sprintf("%v", k)] = renderValue(e)
		}
		return m
	default:
		return v
	}
}
