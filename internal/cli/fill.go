package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/eventloop"
	"github.com/goliatone/go-iform/pkg/renderer"
	"github.com/goliatone/go-iform/pkg/tui"
	"github.com/goliatone/go-iform/pkg/widgets/headless"
)

// FillOptions holds flags for the fill command.
type FillOptions struct {
	Record   string
	Table    string
	Language string
	Attempts int

	// driver replaces the survey prompts; tests script it.
	driver tui.PromptDriver
}

// NewFillCommand creates the fill command.
func NewFillCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FillOptions{}
	cmd := &cobra.Command{
		Use:   "fill <file>",
		Short: "Fill in a form at the console and save it",
		Long: `Ask for every visible field of a form in order, then validate and save
the record through the configured data bridge. Fields that fail on save
are asked again.

With --record the existing row is loaded first and updated on save.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFill(rootOpts, opts, cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Record, "record", "", "id of an existing record to edit")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table to load the record from (defaults to the form's)")
	cmd.Flags().StringVar(&opts.Language, "lang", "", "display language (defaults to the form's)")
	cmd.Flags().IntVar(&opts.Attempts, "attempts", tui.DefaultAttempts, "save attempts before giving up")
	return cmd
}

func runFill(rootOpts *RootOptions, opts *FillOptions, cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	logger := rootOpts.Logger()
	cfg, err := rootOpts.Config()
	if err != nil {
		return err
	}
	data, err := readInput(path)
	if err != nil {
		return err
	}
	store, closeStore, err := openBridge(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close bridge", "error", err)
		}
	}()

	driver := opts.driver
	if driver == nil {
		driver = tui.NewSurveyDriver()
	}

	// bridge calls run inline and completions queue up until pumped
	queue := eventloop.NewQueue()
	defer queue.Close()
	pump := func() {
		for queue.Flush() > 0 {
		}
	}

	ropts := []renderer.Option{
		renderer.WithBridge(store),
		renderer.WithExecutor(eventloop.Inline{}),
		renderer.WithDispatcher(queue),
		renderer.WithConfirmer(tui.NewConfirmer(driver)),
		renderer.WithLogger(logger),
	}
	if opts.Language != "" {
		ropts = append(ropts, renderer.WithLanguage(opts.Language))
	}
	r := renderer.New(headless.New(), ropts...)
	if err := r.LoadForm(ctx, data); err != nil {
		return WrapExitError(ExitFailure, "load "+path, err)
	}
	pump()

	if opts.Record != "" {
		if err := loadRecord(ctx, r, opts.Table, recordID(opts.Record), pump); err != nil {
			return err
		}
	}

	session, err := tui.NewSession(r,
		tui.WithDriver(driver),
		tui.WithPump(pump),
		tui.WithAttempts(opts.Attempts),
		tui.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitFailure, "start session", err)
	}
	res, err := session.Run(ctx)
	if err != nil {
		if errors.Is(err, tui.ErrAborted) {
			return NewExitError(ExitFailure, "aborted")
		}
		return WrapExitError(ExitFailure, "fill "+path, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), describeSave(res.Saved))
	return nil
}

func loadRecord(ctx context.Context, r *renderer.Renderer, table string, id any, pump func()) error {
	var (
		loadErr error
		done    bool
	)
	if err := r.SetRecord(ctx, table, id, func(err error) { loadErr, done = err, true }); err != nil {
		return WrapExitError(ExitFailure, "load record", err)
	}
	pump()
	if !done {
		return NewExitError(ExitFailure, "load record: no completion")
	}
	if loadErr != nil {
		return WrapExitError(ExitFailure, "load record", loadErr)
	}
	return nil
}

// recordID keeps numeric ids numeric so they bind as integers.
func recordID(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

func describeSave(res bridge.SaveResult) string {
	if res.Created {
		return fmt.Sprintf("created record %v", res.ID)
	}
	return fmt.Sprintf("updated %d record(s)", res.Updated)
}
