package engine

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/samber/lo"
)

// SegmentFile is a downloaded segment on disk. Path is "" when the fetch failed.
type SegmentFile struct {
	Index  int
	Path   string
	IsInit bool
}

// SegmentFiles pairs a segment list with the paths returned by FetchAll.
func SegmentFiles(segments SegmentList, paths []string) []SegmentFile {
	files := make([]SegmentFile, 0, len(segments))
	for i, segment := range segments {
		path := ""
		if i < len(paths) {
			path = paths[i]
		}
		files = append(files, SegmentFile{Index: segment.Index, Path: path, IsInit: segment.IsInit})
	}
	return files
}

// Assemble concatenates the init segment followed by media segments in
// ascending index order. Fragments of one fMP4 stream concatenate into a
// valid file, so no container-aware merging happens here.
//
// Every input is checked before the output is created: a gap anywhere fails
// with *AssemblyError and leaves no output file behind.
func Assemble(files []SegmentFile, outputPath string) (int64, error) {
	if len(files) == 0 {
		return 0, &AssemblyError{Err: errors.New("no segments to assemble")}
	}

	ordered := slices.Clone(files)
	slices.SortStableFunc(ordered, func(a, b SegmentFile) int {
		if a.IsInit != b.IsInit {
			if a.IsInit {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Index, b.Index)
	})

	missing := lo.FilterMap(ordered, func(file SegmentFile, _ int) (int, bool) {
		if file.Path == "" {
			return file.Index, true
		}
		info, err := os.Stat(file.Path)
		return file.Index, err != nil || info.IsDir()
	})
	if len(missing) > 0 {
		return 0, &AssemblyError{Missing: missing}
	}

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, &AssemblyError{Err: fmt.Errorf("create output %s: %w", outputPath, err)}
	}

	var written int64
	for _, file := range ordered {
		n, copyErr := appendFile(out, file.Path)
		written += n
		if copyErr != nil {
			_ = out.Close()
			_ = os.Remove(outputPath)
			return 0, &AssemblyError{Err: fmt.Errorf("append segment %d: %w", file.Index, copyErr)}
		}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outputPath)
		return 0, &AssemblyError{Err: fmt.Errorf("close output %s: %w", outputPath, err)}
	}
	return written, nil
}

func appendFile(dst io.Writer, path string) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = in.Close()
	}()
	return io.Copy(dst, in)
}
