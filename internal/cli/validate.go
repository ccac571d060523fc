package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/quarry/schema"
)

// Error codes for validate output.
const (
	ErrCodeLoad   = "E001" // schema dir unreadable or no CUE files
	ErrCodeSchema = "E002" // record declaration invalid
)

// ValidationResult holds schema validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Records []string `json:"records,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate CUE record type declarations",
		Long: `Validate the CUE record type declarations in a directory.

Checks that every declared record has a source, at least one field, and
only known field types. Prints the declared record names on success.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	formatter.VerboseLog("Loading CUE schema from %s", dir)

	catalog, err := schema.LoadDir(dir)
	if err != nil {
		code := ErrCodeLoad
		var cerr *schema.CompileError
		if errors.As(err, &cerr) {
			code = ErrCodeSchema
		}
		if formatter.Format == "json" {
			_ = formatter.Error(code, err.Error(), ValidationResult{Valid: false, Error: err.Error()})
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Schema invalid")
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, err.Error())
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, err.Error()))
	}

	names := catalog.Names()
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Records: names})
	}

	fmt.Fprintf(formatter.Writer, "✓ Schema valid (%d record type(s))\n", len(names))
	for _, name := range names {
		rt, _ := catalog.Get(name)
		fmt.Fprintf(formatter.Writer, "  %s -> %s (%d fields", name, rt.Source, len(rt.Fields))
		if pk := rt.PrimaryKey(); len(pk) > 0 {
			fmt.Fprintf(formatter.Writer, ", pk %v", pk)
		}
		fmt.Fprintln(formatter.Writer, ")")
	}
	return nil
}
