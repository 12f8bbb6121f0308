package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-iform/pkg/schema"
)

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	Write bool
	List  bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{}
	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Rewrite documents in canonical JSON",
		Long: `Rewrite .iform documents as canonical indented JSON with every default
filled in. YAML and legacy documents come out in the current shape.

Without flags the result is printed to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(rootOpts, opts, cmd, args)
		},
	}
	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "write the result back to each file")
	cmd.Flags().BoolVarP(&opts.List, "list", "l", false, "list files whose formatting differs")
	return cmd
}

func runFmt(rootOpts *RootOptions, opts *FmtOptions, cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	logger := rootOpts.Logger()
	for _, path := range paths {
		data, err := readInput(path)
		if err != nil {
			return err
		}
		def, err := schema.Parse(data, schema.WithLocation(path), schema.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitFailure, "format "+path, err)
		}
		formatted, err := schema.Marshal(schema.MergeWithDefaults(def))
		if err != nil {
			return WrapExitError(ExitFailure, "format "+path, err)
		}
		changed := !bytes.Equal(data, formatted)

		if opts.List && changed {
			fmt.Fprintln(out, path)
		}
		if opts.Write {
			if !changed {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "stat "+path, err)
			}
			if err := os.WriteFile(path, formatted, info.Mode().Perm()); err != nil {
				return WrapExitError(ExitCommandError, "write "+path, err)
			}
			logger.Debug("formatted", "path", path)
			continue
		}
		if !opts.List {
			_, _ = out.Write(formatted)
		}
	}
	return nil
}
