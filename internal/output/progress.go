package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/jaa/soundloader/internal/output/compact"
)

type ProgressOptions struct {
	Interactive bool
}

// ProgressRenderer draws download progress. On a terminal it drives an
// in-place bar; otherwise it prints one compact line per stage change and one
// when a stage completes.
type ProgressRenderer struct {
	dst         io.Writer
	interactive bool

	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	stage    string
	lastLine string
}

func NewProgressRenderer(dst io.Writer) *ProgressRenderer {
	return NewProgressRendererWithOptions(dst, ProgressOptions{
		Interactive: SupportsInPlaceUpdates(dst),
	})
}

func NewProgressRendererWithOptions(dst io.Writer, opts ProgressOptions) *ProgressRenderer {
	return &ProgressRenderer{dst: dst, interactive: opts.Interactive}
}

func SupportsInPlaceUpdates(dst io.Writer) bool {
	file, ok := dst.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func (r *ProgressRenderer) Update(stage string, step string, completed int, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stageChanged := stage != r.stage
	if stageChanged {
		r.finishBarLocked()
		r.stage = stage
	}

	if !r.interactive {
		if !stageChanged && (total <= 0 || completed < total) {
			return
		}
		line := compact.RenderStageLine(stage, step, completed, total)
		if line == r.lastLine {
			return
		}
		r.lastLine = line
		_, _ = fmt.Fprintln(r.dst, line)
		return
	}

	if r.bar == nil {
		r.bar = r.newBarLocked(stage, total)
	}
	if total > 0 {
		_ = r.bar.Set(completed)
		return
	}
	r.bar.Describe(fmt.Sprintf("%s %s", stage, step))
	_ = r.bar.Add(1)
}

func (r *ProgressRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishBarLocked()
	r.stage = ""
}

func (r *ProgressRenderer) newBarLocked(stage string, total int) *progressbar.ProgressBar {
	limit := total
	if limit <= 0 {
		limit = -1
	}
	return progressbar.NewOptions(limit,
		progressbar.OptionSetWriter(r.dst),
		progressbar.OptionSetDescription(stage),
		progressbar.OptionSetWidth(24),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
	)
}

func (r *ProgressRenderer) finishBarLocked() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
}
