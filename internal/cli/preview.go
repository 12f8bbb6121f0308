package cli

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-iform/internal/config"
	"github.com/goliatone/go-iform/pkg/preview"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/widgets"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	Output    string
	Language  string
	Width     float64
	Variant   string
	Templates string
	Force     bool
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{}
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Render a document as a static HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(rootOpts, opts, cmd, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.Language, "lang", "", "display language (defaults to the form's)")
	cmd.Flags().Float64Var(&opts.Width, "width", 0, "viewport width in pixels")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "theme variant, e.g. dark")
	cmd.Flags().StringVar(&opts.Templates, "templates", "", "directory with template overrides")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite an existing output file")
	return cmd
}

// newPreviewRenderer builds a renderer from the configuration; explicit
// variant and width values win over it.
func newPreviewRenderer(rootOpts *RootOptions, cfg config.Config, variant string, width float64, extra ...preview.Option) (*preview.Renderer, error) {
	if variant == "" {
		variant = cfg.Theme.Variant
	}
	if width <= 0 {
		width = cfg.Viewport
	}
	opts := append([]preview.Option{
		preview.WithTheme(widgets.ThemeFromManifest(widgets.DefaultManifest(), variant)),
		preview.WithViewport(width),
		preview.WithLogger(rootOpts.Logger()),
	}, extra...)
	r, err := preview.New(opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load templates", err)
	}
	return r, nil
}

func runPreview(rootOpts *RootOptions, opts *PreviewOptions, cmd *cobra.Command, path string) error {
	cfg, err := rootOpts.Config()
	if err != nil {
		return err
	}
	data, err := readInput(path)
	if err != nil {
		return err
	}
	def, err := schema.Parse(data, schema.WithLocation(path), schema.WithLogger(rootOpts.Logger()))
	if err != nil {
		return WrapExitError(ExitFailure, "preview "+path, err)
	}

	r, err := newPreviewRenderer(rootOpts, cfg, opts.Variant, opts.Width,
		preview.WithLanguage(opts.Language),
		preview.WithTemplatesDir(opts.Templates),
	)
	if err != nil {
		return err
	}
	html, err := r.Render(cmd.Context(), schema.MergeWithDefaults(def))
	if err != nil {
		return WrapExitError(ExitFailure, "preview "+path, err)
	}
	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(html)
		return err
	}
	if err := writeOutput(opts.Output, html, opts.Force); err != nil {
		return err
	}
	rootOpts.Logger().Info("preview written", "path", opts.Output, "bytes", len(html))
	return nil
}
