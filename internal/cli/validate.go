package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-iform/pkg/schema"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check .iform documents",
		Long: `Check .iform documents for syntax, structure and semantic errors.

Every violation is reported with its path. Documents in a legacy shape are
accepted; the normalisations applied are listed with --verbose.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	logger := opts.Logger()
	failed := 0
	for _, path := range paths {
		data, err := readInput(path)
		if err != nil {
			return err
		}
		res, err := schema.Decode(data, schema.WithLocation(path), schema.WithLogger(logger))
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", path)
			var schemaErr *schema.SchemaError
			if errors.As(err, &schemaErr) {
				for _, v := range schemaErr.Violations {
					fmt.Fprintf(out, "  %s\n", v)
				}
			} else {
				fmt.Fprintf(out, "  %v\n", err)
			}
			continue
		}
		logger.Debug("validated", "path", path, "form", res.Definition.FormID, "notes", len(res.Notes))
		fmt.Fprintf(out, "ok   %s\n", path)
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d documents invalid", failed, len(paths)))
	}
	return nil
}
