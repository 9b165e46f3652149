package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	initSegmentName = "init.mp4"
	workspacePrefix = "soundloader-"
)

// Workspace is a scratch directory owned by exactly one materialize call.
type Workspace struct {
	Dir string
}

func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root %s: %w", root, err)
	}
	dir := filepath.Join(root, workspacePrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", dir, err)
	}
	return &Workspace{Dir: dir}, nil
}

func (w *Workspace) SegmentPath(segment Segment) string {
	if segment.IsInit {
		return filepath.Join(w.Dir, initSegmentName)
	}
	return filepath.Join(w.Dir, fmt.Sprintf("segment%d.m4s", segment.Index))
}

func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, filepath.Base(name))
}

// Remove deletes the workspace and everything in it. It is safe to call more
// than once.
func (w *Workspace) Remove() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.Dir, err)
	}
	return nil
}
