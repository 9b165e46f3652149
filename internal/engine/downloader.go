package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type FetchResult struct {
	// SegmentPaths is aligned with the requested segments; a failed fetch
	// leaves "" at its position.
	SegmentPaths  []string
	ThumbnailPath string
	Failed        []int
	Bytes         int64
}

type Downloader struct {
	Fetcher        Fetcher
	Concurrency    int
	SegmentTimeout time.Duration
	Logger         *zap.Logger
	OnProgress     ProgressFunc
}

// FetchAll downloads every segment and the thumbnail into the workspace.
// All tasks run to completion regardless of sibling failures; the call
// returns only after the last one finished.
func (d *Downloader) FetchAll(ctx context.Context, segments SegmentList, thumbnailURL string, thumbnailName string, ws *Workspace) FetchResult {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	result := FetchResult{SegmentPaths: make([]string, len(segments))}
	total := len(segments)
	withThumbnail := thumbnailURL != "" && thumbnailName != ""
	if withThumbnail {
		total++
	}

	var (
		bytes     atomic.Int64
		reportMu  sync.Mutex
		completed int
	)
	// Counting under the lock keeps reported values monotonic.
	report := func() {
		reportMu.Lock()
		defer reportMu.Unlock()
		completed++
		if d.OnProgress != nil {
			d.OnProgress(Progress{Stage: ProgressDownloading, Step: StepFetchSegments, Completed: completed, Total: total})
		}
	}

	group := new(errgroup.Group)
	if d.Concurrency > 0 {
		group.SetLimit(d.Concurrency)
	}

	for i, segment := range segments {
		group.Go(func() error {
			defer report()
			target := ws.SegmentPath(segment)
			n, err := d.fetchOne(ctx, segment.URL, target)
			if err != nil {
				logger.Warn("segment fetch failed",
					zap.String("step", StepFetchSegments),
					zap.Int("index", segment.Index),
					zap.String("url", segment.URL),
					zap.Error(err),
				)
				return nil
			}
			bytes.Add(n)
			result.SegmentPaths[i] = target
			return nil
		})
	}

	if withThumbnail {
		group.Go(func() error {
			defer report()
			target := ws.Path(thumbnailName)
			n, err := d.fetchOne(ctx, thumbnailURL, target)
			if err != nil {
				logger.Warn("thumbnail fetch failed", zap.String("step", StepFetchSegments), zap.String("url", thumbnailURL), zap.Error(err))
				return nil
			}
			bytes.Add(n)
			result.ThumbnailPath = target
			return nil
		})
	}

	_ = group.Wait()

	result.Bytes = bytes.Load()
	result.Failed = lo.FilterMap(segments, func(segment Segment, i int) (int, bool) {
		return segment.Index, result.SegmentPaths[i] == ""
	})
	return result
}

func (d *Downloader) fetchOne(ctx context.Context, rawURL string, target string) (int64, error) {
	if d.SegmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.SegmentTimeout)
		defer cancel()
	}
	return d.Fetcher.FetchFile(ctx, rawURL, target)
}
