package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-iform/pkg/schema"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	Output string
	NameAr string
	NameEn string
	Table  string
	Force  bool
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{}
	cmd := &cobra.Command{
		Use:   "new [form-id]",
		Short: "Scaffold an empty form document",
		Long: `Scaffold a form with two empty sections and save and cancel actions.
A random id is generated when none is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runNew(rootOpts, opts, cmd, id)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.NameAr, "name-ar", "", "Arabic form name")
	cmd.Flags().StringVar(&opts.NameEn, "name-en", "", "English form name")
	cmd.Flags().StringVar(&opts.Table, "table", "", "target table for saves")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite an existing output file")
	return cmd
}

func runNew(rootOpts *RootOptions, opts *NewOptions, cmd *cobra.Command, id string) error {
	def := schema.NewDefaultForm(id)
	if v := strings.TrimSpace(opts.NameAr); v != "" {
		def.NameAr = v
	}
	if v := strings.TrimSpace(opts.NameEn); v != "" {
		def.NameEn = v
	}
	def.TargetTable = strings.TrimSpace(opts.Table)

	data, err := schema.Marshal(def)
	if err != nil {
		return WrapExitError(ExitFailure, "scaffold form", err)
	}
	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := writeOutput(opts.Output, data, opts.Force); err != nil {
		return err
	}
	rootOpts.Logger().Info("form created", "path", opts.Output, "form", def.FormID)
	return nil
}
