package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jaa/soundloader/internal/config"
	"github.com/jaa/soundloader/internal/engine"
	"github.com/jaa/soundloader/internal/logging"
	"github.com/jaa/soundloader/internal/output"
)

func loadConfig(app *AppContext) (config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := config.Load(config.LoadOptions{
		ExplicitPath: strings.TrimSpace(app.Opts.ConfigPath),
		WorkingDir:   wd,
	})
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func isTTY(file *os.File) bool {
	stat, err := file.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// canPrompt reports whether confirmation questions can be asked on the input stream.
func canPrompt(app *AppContext) bool {
	if app.Opts.NoInput || app.Opts.JSON {
		return false
	}
	file, ok := app.IO.In.(*os.File)
	return ok && isTTY(file)
}

func promptYesNo(app *AppContext, prompt string) (bool, error) {
	fmt.Fprintf(app.IO.Out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(app.IO.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes", nil
}

func newLogger(app *AppContext) *zap.Logger {
	return logging.New(logging.Options{
		Verbose: app.Opts.Verbose,
		JSON:    app.Opts.JSON,
		Writer:  app.IO.ErrOut,
	})
}

func newEmitter(app *AppContext) output.EventEmitter {
	if app.Opts.JSON {
		return output.NewJSONEmitter(app.IO.Out)
	}
	human := output.NewHumanEmitter(app.IO.Out, app.IO.ErrOut, app.Opts.Quiet, app.Opts.Verbose)
	if app.Opts.NoColor {
		human.WithColor(false)
	}
	return human
}

func newFetcher(app *AppContext, cfg config.Config, logger *zap.Logger) engine.Fetcher {
	if app.Fetcher != nil {
		return app.Fetcher
	}
	return engine.NewHTTPFetcher(engine.FetcherOptions{
		Timeout:            time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		UserAgent:          cfg.UserAgent,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		Logger:             logger,
	})
}

type pipelineOverrides struct {
	Overwrite bool
}

func newPipeline(app *AppContext, cfg config.Config, overrides pipelineOverrides, emitter output.EventEmitter, logger *zap.Logger) (*engine.Pipeline, error) {
	expandedOutput, err := config.ExpandPath(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}
	expandedScratch, err := config.ExpandPath(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch directory: %w", err)
	}

	pipeline := engine.NewPipeline(newFetcher(app, cfg, logger), engine.Options{
		OutputDir:       expandedOutput,
		ScratchDir:      expandedScratch,
		ClientScriptURL: cfg.Endpoints.ClientScriptURL,
		StreamAPIBase:   cfg.Endpoints.StreamAPIBase,
		Concurrency:     cfg.Concurrency,
		SegmentTimeout:  time.Duration(cfg.SegmentTimeoutSeconds) * time.Second,
		Overwrite:       cfg.Overwrite || overrides.Overwrite,
	}, emitter, logger)
	if app.Tagger != nil {
		pipeline.Tagger = app.Tagger
	}
	return pipeline, nil
}

// progressFunc adapts pipeline progress to the terminal renderer. It returns
// nil when progress should not be drawn.
func progressFunc(app *AppContext) (engine.ProgressFunc, func()) {
	if app.Opts.JSON || app.Opts.Quiet {
		return nil, func() {}
	}
	renderer := output.NewProgressRenderer(app.IO.ErrOut)
	return func(p engine.Progress) {
		renderer.Update(string(p.Stage), p.Step, p.Completed, p.Total)
	}, renderer.Finish
}
