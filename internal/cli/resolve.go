package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"

	"github.com/jaa/soundloader/internal/config"
	"github.com/jaa/soundloader/internal/engine"
	"github.com/jaa/soundloader/internal/exitcode"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newResolveCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <track-url>",
		Short: "Resolve a track page and print what would be downloaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return withExitCode(exitcode.InvalidConfig, err)
			}
			if err := config.Validate(cfg); err != nil {
				return withExitCode(exitcode.InvalidConfig, err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), interruptSignals()...)
			defer stop()

			res, err := resolveTrack(ctx, app, cfg, args[0])
			if err != nil {
				return err
			}
			return printPreview(app, res, "")
		},
	}
}

// resolveTrack runs the resolve phase with the configured pipeline and
// classifies failures into exit codes.
func resolveTrack(ctx context.Context, app *AppContext, cfg config.Config, rawURL string) (engine.Resolution, error) {
	logger := newLogger(app)
	defer func() { _ = logger.Sync() }()

	pipeline, err := newPipeline(app, cfg, pipelineOverrides{}, newEmitter(app), logger)
	if err != nil {
		return engine.Resolution{}, withExitCode(exitcode.InvalidConfig, err)
	}
	res, err := pipeline.Resolve(ctx, rawURL, nil)
	if err != nil {
		return engine.Resolution{}, withExitCode(pipelineExitCode(err), err)
	}
	return res, nil
}

type trackPreview struct {
	URL       string `json:"url"`
	TrackID   string `json:"track_id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Filename  string `json:"filename"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Segments  int    `json:"segments"`
	Duration  string `json:"duration,omitempty"`
}

func previewFor(res engine.Resolution, filename string) trackPreview {
	if strings.TrimSpace(filename) == "" {
		filename = res.Metadata.Filename
	}
	preview := trackPreview{
		URL:       res.Reference.SourceURL,
		TrackID:   res.Reference.TrackID,
		Title:     res.Metadata.Title,
		Artist:    res.Metadata.Artist,
		Filename:  engine.SanitizeFilename(strings.TrimSuffix(strings.TrimSpace(filename), ".m4a")) + ".m4a",
		Thumbnail: res.Metadata.ThumbnailURL,
		Segments:  res.Segments.MediaCount(),
	}
	if res.Playlist.Duration > 0 {
		preview.Duration = res.Playlist.Duration.String()
	}
	return preview
}

func printPreview(app *AppContext, res engine.Resolution, filename string) error {
	preview := previewFor(res, filename)
	if app.Opts.JSON {
		encoded, err := json.Marshal(map[string]any{"event": "track_preview", "track": preview})
		if err != nil {
			return withExitCode(exitcode.RuntimeFailure, err)
		}
		fmt.Fprintln(app.IO.Out, string(encoded))
		return nil
	}
	renderPreviewTable(app.IO.Out, preview)
	return nil
}

func renderPreviewTable(w io.Writer, preview trackPreview) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	rows := [][]string{
		{"Title", preview.Title},
		{"Artist", preview.Artist},
		{"File", preview.Filename},
		{"Segments", strconv.Itoa(preview.Segments)},
	}
	if preview.Duration != "" {
		rows = append(rows, []string{"Duration", preview.Duration})
	}
	if preview.Thumbnail != "" {
		rows = append(rows, []string{"Cover", preview.Thumbnail})
	}
	table.AppendBulk(rows)
	table.Render()
}
