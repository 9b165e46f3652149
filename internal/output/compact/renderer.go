package compact

import (
	"fmt"
	"strings"
)

// RenderStageLine formats one non-interactive progress line, e.g.
// "[downloading] [########--------]  50.0% (3/6)". Stages without a known
// total render as "[resolving] stream_manifest".
func RenderStageLine(stage string, step string, completed int, total int) string {
	label := fmt.Sprintf("[%s]", strings.TrimSpace(stage))
	if total <= 0 {
		if strings.TrimSpace(step) == "" {
			return label
		}
		return label + " " + step
	}
	percent := float64(completed) / float64(total) * 100
	return fmt.Sprintf("%s %s (%d/%d)", label, RenderProgress(percent, 16), completed, total)
}

func RenderProgress(percent float64, width int) string {
	clamped := ClampPercent(percent)
	if width <= 0 {
		width = 16
	}
	filled := int((clamped / 100) * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	return fmt.Sprintf("[%s] %5.1f%%", bar, clamped)
}

func ClampPercent(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
