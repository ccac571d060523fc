package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
)

// ExplainResult is the compiled form of one query file.
type ExplainResult struct {
	Op          string   `json:"op"`
	SQL         string   `json:"sql"`
	Params      []any    `json:"params,omitempty"`
	Fingerprint string   `json:"fingerprint"`
	Sources     []string `json:"sources"`
	Leaves      int      `json:"leaves"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		schemaDir   string
		opName      string
		placeholder string
		prefix      string
	)

	cmd := &cobra.Command{
		Use:   "explain <query.yaml>",
		Short: "Compile a query file and print the plan",
		Long: `Compile a YAML query file against the schema and print the SQL
statement, parameters, and plan fingerprint without executing anything.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, explainOptions{
				queryPath:   args[0],
				schemaDir:   schemaDir,
				opName:      opName,
				placeholder: placeholder,
				prefix:      prefix,
			}, cmd)
		},
	}

	cmd.Flags().StringVar(&schemaDir, "schema", "", "CUE schema directory (overrides config)")
	cmd.Flags().StringVar(&opName, "op", "all", "operation (all|update_all|delete_all)")
	cmd.Flags().StringVar(&placeholder, "placeholder", "question", "placeholder style (question|dollar)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "source prefix (schema/attach name)")

	return cmd
}

type explainOptions struct {
	queryPath   string
	schemaDir   string
	opName      string
	placeholder string
	prefix      string
}

func runExplain(rootOpts *RootOptions, eo explainOptions, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

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
	prefix := eo.prefix
	if prefix == "" {
		prefix = cfg.Prefix
	}

	op, err := ParseOp(eo.opName)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing operation", err)
	}

	var style plan.PlaceholderStyle
	switch eo.placeholder {
	case "question":
		style = plan.PlaceholderQuestion
	case "dollar":
		style = plan.PlaceholderDollar
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown placeholder style %q (question|dollar)", eo.placeholder))
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

	formatter.VerboseLog("Compiling %s over %s", op, qf.From)

	compiler := plan.NewCompiler(style)
	p, sql, params, err := compiler.Compile(q, op, prefix)
	if err != nil {
		return WrapExitError(ExitFailure, "compiling query", err)
	}

	sources := make([]string, len(p.Sources))
	for i, s := range p.Sources {
		sources[i] = s.Name
	}
	leaves := 0
	if p.Selection != nil {
		leaves = len(p.Selection.Leaves)
	}

	result := ExplainResult{
		Op:          string(op),
		SQL:         sql,
		Params:      params,
		Fingerprint: p.Fingerprint,
		Sources:     sources,
		Leaves:      leaves,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "op:          %s\n", result.Op)
	fmt.Fprintf(formatter.Writer, "sql:         %s\n", result.SQL)
	fmt.Fprintf(formatter.Writer, "params:      %v\n", result.Params)
	fmt.Fprintf(formatter.Writer, "fingerprint: %s\n", result.Fingerprint)
	fmt.Fprintf(formatter.Writer, "sources:     %v\n", result.Sources)
	if p.Selection != nil {
		fmt.Fprintf(formatter.Writer, "selection:   %d leaf(s), row width %d\n",
			leaves, selection.RowWidth(p.Selection.Leaves))
	}
	return nil
}
