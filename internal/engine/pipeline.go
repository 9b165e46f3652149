package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaa/soundloader/internal/fileops"
	"github.com/jaa/soundloader/internal/output"
)

const (
	trackHostMarker    = "soundcloud.com"
	minTrackURLLength  = 15
	outputExtension    = ".m4a"
	partialFilePattern = ".soundloader-%s" + outputExtension
)

type Options struct {
	OutputDir       string
	ScratchDir      string
	ClientScriptURL string
	StreamAPIBase   string
	Concurrency     int
	SegmentTimeout  time.Duration
	Overwrite       bool
}

// Pipeline owns no per-request state: everything a materialize call needs is
// carried by the Resolution returned from Resolve.
type Pipeline struct {
	Fetcher Fetcher
	Tagger  Tagger
	Options Options
	Emitter output.EventEmitter
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewPipeline(fetcher Fetcher, opts Options, emitter output.EventEmitter, logger *zap.Logger) *Pipeline {
	if emitter == nil {
		emitter = noOpEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Fetcher: fetcher,
		Tagger:  MP4Tagger{},
		Options: opts,
		Emitter: emitter,
		Logger:  logger,
		Now:     time.Now,
	}
}

type noOpEmitter struct{}

func (noOpEmitter) Emit(event output.Event) error {
	return nil
}

// ValidateTrackURL applies the superficial input checks: https scheme, the
// platform domain and a minimum length.
func ValidateTrackURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	switch {
	case len(trimmed) < minTrackURLLength:
		return fmt.Errorf("%w: too short", ErrInvalidURL)
	case !strings.HasPrefix(trimmed, "https://"):
		return fmt.Errorf("%w: must start with https://", ErrInvalidURL)
	case !strings.Contains(trimmed, trackHostMarker):
		return fmt.Errorf("%w: must be a %s link", ErrInvalidURL, trackHostMarker)
	case strings.Count(trimmed, "/") < 3:
		return fmt.Errorf("%w: missing track path", ErrInvalidURL)
	}
	return nil
}

// Resolve runs page fetch, extraction, token and stream resolution and
// playlist parsing. Progress is indeterminate throughout.
func (p *Pipeline) Resolve(ctx context.Context, rawURL string, onProgress ProgressFunc) (Resolution, error) {
	rawURL = strings.TrimSpace(rawURL)
	res := Resolution{}
	if err := ValidateTrackURL(rawURL); err != nil {
		return res, p.resolveFailed(StepValidate, rawURL, err)
	}

	p.emit(output.LevelInfo, output.EventResolveStarted, "", fmt.Sprintf("resolving %s", rawURL), nil)

	p.progress(onProgress, Progress{Stage: ProgressResolving, Step: StepFetchPage})
	page, err := p.Fetcher.FetchText(ctx, rawURL)
	if err != nil {
		return res, p.resolveFailed(StepFetchPage, rawURL, err)
	}

	p.progress(onProgress, Progress{Stage: ProgressResolving, Step: StepExtract})
	trackID, ok := ExtractTrackID(page)
	if !ok {
		return res, p.resolveFailed(StepExtract, rawURL, &ParseError{Source: "track page", Marker: markerStreamIDBegin})
	}
	res.Reference = TrackReference{
		SourceURL: rawURL,
		TrackID:   trackID,
		PlayerURL: ExtractPlayerURL(page),
	}
	res.Metadata = ExtractMetadata(page)
	if res.Reference.PlayerURL == "" {
		p.Logger.Debug("page has no player card", zap.String("step", StepExtract), zap.String("url", rawURL))
	}
	if res.Metadata.ThumbnailURL == "" {
		p.Logger.Info("page has no thumbnail", zap.String("step", StepExtract), zap.String("url", rawURL))
	}

	p.progress(onProgress, Progress{Stage: ProgressResolving, Step: StepClientToken})
	tokens := &TokenResolver{Fetcher: p.Fetcher, ScriptURL: p.Options.ClientScriptURL, Logger: p.Logger}
	token, err := tokens.Resolve(ctx, page)
	if err != nil {
		if ctx.Err() != nil {
			return res, p.resolveFailed(StepClientToken, rawURL, err)
		}
		p.Logger.Warn("continuing without client token", zap.String("step", StepClientToken), zap.Error(err))
		p.emit(output.LevelWarn, output.EventClientTokenMissing, StepClientToken, "client token not found; the media API will likely reject the request", nil)
	}

	p.progress(onProgress, Progress{Stage: ProgressResolving, Step: StepStream})
	streams := &StreamResolver{Fetcher: p.Fetcher, APIBase: p.Options.StreamAPIBase, Logger: p.Logger}
	res.Stream, err = streams.Resolve(ctx, trackID, token)
	if err != nil {
		return res, p.resolveFailed(StepStream, res.Stream.SignedStreamURL, err)
	}

	p.progress(onProgress, Progress{Stage: ProgressResolving, Step: StepPlaylist})
	playlistText, err := p.Fetcher.FetchText(ctx, res.Stream.PlaylistURL)
	if err != nil {
		return res, p.resolveFailed(StepPlaylist, res.Stream.PlaylistURL, err)
	}
	segments := ParsePlaylist(playlistText)
	if segments.MediaCount() == 0 {
		return res, p.resolveFailed(StepPlaylist, res.Stream.PlaylistURL, &ParseError{Source: "playlist", Marker: "segment uri"})
	}
	res.Segments, err = ResolveSegmentURLs(res.Stream.PlaylistURL, segments)
	if err != nil {
		return res, p.resolveFailed(StepPlaylist, res.Stream.PlaylistURL, err)
	}

	res.Playlist, err = InspectPlaylist(playlistText)
	if err != nil {
		p.Logger.Debug("playlist inspection failed", zap.String("step", StepPlaylist), zap.Error(err))
		res.Playlist = PlaylistInfo{MediaSegments: res.Segments.MediaCount()}
	}

	p.emit(output.LevelInfo, output.EventResolveFinished, "", fmt.Sprintf("resolved %q (%d segment(s))", res.Metadata.Title, len(res.Segments)), map[string]any{
		"filename":      res.Metadata.Filename,
		"title":         res.Metadata.Title,
		"artist":        res.Metadata.Artist,
		"thumbnail_url": res.Metadata.ThumbnailURL,
		"track_id":      res.Reference.TrackID,
		"segments":      len(res.Segments),
		"duration":      res.Playlist.Duration.String(),
	})
	return res, nil
}

// Materialize downloads, assembles, tags and publishes a resolved track. The
// scratch workspace is removed on every return path. Tagging failures are
// reported on the result but do not fail the call.
func (p *Pipeline) Materialize(ctx context.Context, res Resolution, filename string, onProgress ProgressFunc) (AssembledTrack, error) {
	track := AssembledTrack{Title: res.Metadata.Title, Artist: res.Metadata.Artist}
	if strings.TrimSpace(filename) == "" {
		filename = res.Metadata.Filename
	}
	filename = SanitizeFilename(strings.TrimSuffix(strings.TrimSpace(filename), outputExtension))

	if len(res.Segments) == 0 {
		return track, p.materializeFailed(StepFetchSegments, errors.New("resolution has no segments"))
	}

	outputDir := p.Options.OutputDir
	if strings.TrimSpace(outputDir) == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return track, p.materializeFailed(StepPublish, fmt.Errorf("create output directory %s: %w", outputDir, err))
	}

	ws, err := NewWorkspace(p.Options.ScratchDir)
	if err != nil {
		return track, p.materializeFailed(StepWorkspace, err)
	}
	defer func() {
		if removeErr := ws.Remove(); removeErr != nil {
			p.Logger.Warn("workspace cleanup failed", zap.String("step", StepWorkspace), zap.Error(removeErr))
		}
	}()

	p.emit(output.LevelInfo, output.EventMaterializeStarted, StepFetchSegments, fmt.Sprintf("downloading %d segment(s)", len(res.Segments)), map[string]any{
		"workspace": ws.Dir,
	})
	downloader := &Downloader{
		Fetcher:        p.Fetcher,
		Concurrency:    p.Options.Concurrency,
		SegmentTimeout: p.Options.SegmentTimeout,
		Logger:         p.Logger,
		OnProgress:     onProgress,
	}
	fetched := downloader.FetchAll(ctx, res.Segments, res.Metadata.ThumbnailURL, res.Metadata.ThumbnailFilename, ws)
	if ctx.Err() != nil {
		return track, p.materializeFailed(StepFetchSegments, ctx.Err())
	}
	if len(fetched.Failed) > 0 {
		p.emit(output.LevelWarn, output.EventSegmentsFetched, StepFetchSegments, fmt.Sprintf("%d of %d segment(s) failed", len(fetched.Failed), len(res.Segments)), map[string]any{
			"failed": fetched.Failed,
		})
	} else {
		p.emit(output.LevelInfo, output.EventSegmentsFetched, StepFetchSegments, fmt.Sprintf("fetched %d segment(s), %s", len(res.Segments), humanize.Bytes(uint64(fetched.Bytes))), nil)
	}

	p.progress(onProgress, Progress{Stage: ProgressAssembling, Step: StepAssemble})
	partialPath := filepath.Join(outputDir, fmt.Sprintf(partialFilePattern, uuid.NewString()))
	defer func() {
		_ = os.Remove(partialPath)
	}()
	written, err := Assemble(SegmentFiles(res.Segments, fetched.SegmentPaths), partialPath)
	if err != nil {
		return track, p.materializeFailed(StepAssemble, err)
	}
	track.Bytes = written

	p.progress(onProgress, Progress{Stage: ProgressTagging, Step: StepTag})
	track.CoverPath = fetched.ThumbnailPath
	if tagErr := p.tag(partialPath, fetched.ThumbnailPath, track.Title, track.Artist); tagErr != nil {
		track.TagErr = tagErr
		p.Logger.Warn("tagging skipped", zap.String("step", StepTag), zap.String("path", partialPath), zap.Error(tagErr))
		p.emit(output.LevelWarn, output.EventTaggingSkipped, StepTag, fmt.Sprintf("tagging skipped: %v", tagErr), nil)
	} else {
		track.Tagged = true
	}

	finalPath := filepath.Join(outputDir, filename+outputExtension)
	if !p.Options.Overwrite {
		finalPath = fileops.NextAvailablePath(finalPath)
	}
	if err := fileops.ReplaceFileSafely(partialPath, finalPath); err != nil {
		return track, p.materializeFailed(StepPublish, err)
	}
	track.Path = finalPath

	p.progress(onProgress, Progress{Stage: ProgressDone, Step: StepPublish})
	p.emit(output.LevelInfo, output.EventMaterializeFinished, "", fmt.Sprintf("saved %s (%s)", finalPath, humanize.Bytes(uint64(track.Bytes))), map[string]any{
		"path":   finalPath,
		"bytes":  track.Bytes,
		"tagged": track.Tagged,
	})
	return track, nil
}

func (p *Pipeline) tag(path string, coverPath string, title string, artist string) error {
	if p.Tagger == nil {
		return &TaggingError{Path: path, Err: errors.New("no tagger configured")}
	}
	return p.Tagger.Tag(path, coverPath, title, artist)
}

func (p *Pipeline) resolveFailed(step string, rawURL string, err error) error {
	p.Logger.Error("resolve failed", zap.String("step", step), zap.String("url", rawURL), zap.Error(err))
	p.emit(output.LevelError, output.EventResolveFailed, step, fmt.Sprintf("could not resolve track (%s): %v", step, err), nil)
	return &ResolveError{Step: step, URL: rawURL, Err: err}
}

func (p *Pipeline) materializeFailed(step string, err error) error {
	p.Logger.Error("materialize failed", zap.String("step", step), zap.Error(err))
	p.emit(output.LevelError, output.EventMaterializeFailed, step, fmt.Sprintf("download failed (%s): %v", step, err), nil)
	return &MaterializeError{Step: step, Err: err}
}

func (p *Pipeline) progress(onProgress ProgressFunc, progress Progress) {
	if onProgress != nil {
		onProgress(progress)
	}
}

func (p *Pipeline) emit(level output.Level, name output.EventName, step string, message string, details map[string]any) {
	if p.Emitter == nil {
		return
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	_ = p.Emitter.Emit(output.Event{
		Timestamp: now(),
		Level:     level,
		Event:     name,
		Step:      step,
		Message:   message,
		Details:   details,
	})
}
