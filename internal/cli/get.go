package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jaa/soundloader/internal/config"
	"github.com/jaa/soundloader/internal/exitcode"
	"github.com/spf13/cobra"
)

type getOptions struct {
	Filename  string
	OutputDir string
	Overwrite bool
	Yes       bool
}

func newGetCommand(app *AppContext) *cobra.Command {
	opts := getOptions{}

	cmd := &cobra.Command{
		Use:   "get <track-url>",
		Short: "Download a track and save it as a tagged .m4a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return withExitCode(exitcode.InvalidConfig, err)
			}
			if strings.TrimSpace(opts.OutputDir) != "" {
				dir, absErr := filepath.Abs(opts.OutputDir)
				if absErr != nil {
					return withExitCode(exitcode.InvalidUsage, fmt.Errorf("resolve --output-dir: %w", absErr))
				}
				cfg.OutputDir = dir
			}
			if err := config.Validate(cfg); err != nil {
				return withExitCode(exitcode.InvalidConfig, err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), interruptSignals()...)
			defer stop()

			logger := newLogger(app)
			defer func() { _ = logger.Sync() }()

			pipeline, err := newPipeline(app, cfg, pipelineOverrides{Overwrite: opts.Overwrite}, newEmitter(app), logger)
			if err != nil {
				return withExitCode(exitcode.InvalidConfig, err)
			}

			res, err := pipeline.Resolve(ctx, args[0], nil)
			if err != nil {
				return withExitCode(pipelineExitCode(err), err)
			}

			if !app.Opts.Quiet {
				if err := printPreview(app, res, opts.Filename); err != nil {
					return err
				}
			}
			if !opts.Yes && canPrompt(app) {
				confirmed, confirmErr := promptYesNo(app, "Download this track?")
				if confirmErr != nil {
					return withExitCode(exitcode.RuntimeFailure, confirmErr)
				}
				if !confirmed {
					fmt.Fprintln(app.IO.Out, "Download canceled.")
					return nil
				}
			}

			onProgress, finish := progressFunc(app)
			_, err = pipeline.Materialize(ctx, res, opts.Filename, onProgress)
			finish()
			if err != nil {
				if errors.Is(ctx.Err(), context.Canceled) {
					return withExitCode(exitcode.Interrupted, err)
				}
				return withExitCode(pipelineExitCode(err), err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Filename, "filename", "f", "", "Output file name without extension (defaults to the track title)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "Directory the .m4a file is written to")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing file instead of picking a numbered name")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
