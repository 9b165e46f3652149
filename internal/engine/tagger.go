package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mp4tag "github.com/Sorrow446/go-mp4tag"
)

var ErrUnsupportedCover = errors.New("unsupported cover image format")

type CoverFormat string

const (
	CoverJPEG CoverFormat = "image/jpeg"
	CoverPNG  CoverFormat = "image/png"
)

// CoverFormatForPath maps a cover file extension to its MIME type.
func CoverFormatForPath(path string) (CoverFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return CoverJPEG, nil
	case ".png":
		return CoverPNG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCover, filepath.Ext(path))
	}
}

type TrackTags struct {
	Title  string
	Artist string
	Cover  []byte
}

// Tagger writes title, artist and cover art into an MP4 container in place.
type Tagger interface {
	Tag(filePath string, coverPath string, title string, artist string) error
}

type MP4Tagger struct{}

func (MP4Tagger) Tag(filePath string, coverPath string, title string, artist string) (err error) {
	// Malformed containers can panic inside the box parser.
	defer func() {
		if r := recover(); r != nil {
			err = &TaggingError{Path: filePath, Err: fmt.Errorf("tag writer panicked: %v", r)}
		}
	}()

	if _, err := os.Stat(filePath); err != nil {
		return &TaggingError{Path: filePath, Err: err}
	}

	tags := &mp4tag.MP4Tags{
		Title:  strings.TrimSpace(title),
		Artist: strings.TrimSpace(artist),
	}
	if coverPath != "" {
		format, err := CoverFormatForPath(coverPath)
		if err != nil {
			return &TaggingError{Path: filePath, Err: err}
		}
		cover, err := os.ReadFile(coverPath)
		if err != nil {
			return &TaggingError{Path: filePath, Err: fmt.Errorf("read cover: %w", err)}
		}
		picture := &mp4tag.MP4Picture{Data: cover, Format: mp4tag.ImageTypeJPEG}
		if format == CoverPNG {
			picture.Format = mp4tag.ImageTypePNG
		}
		tags.Pictures = []*mp4tag.MP4Picture{picture}
	}

	file, err := mp4tag.Open(filePath)
	if err != nil {
		return &TaggingError{Path: filePath, Err: fmt.Errorf("open container: %w", err)}
	}
	defer file.Close()

	if err := file.Write(tags, []string{}); err != nil {
		return &TaggingError{Path: filePath, Err: fmt.Errorf("write tags: %w", err)}
	}
	return nil
}

// ReadTags returns the title, artist and first cover stored in an MP4 file.
func ReadTags(filePath string) (TrackTags, error) {
	file, err := mp4tag.Open(filePath)
	if err != nil {
		return TrackTags{}, &TaggingError{Path: filePath, Err: fmt.Errorf("open container: %w", err)}
	}
	defer file.Close()

	tags, err := file.Read()
	if err != nil {
		return TrackTags{}, &TaggingError{Path: filePath, Err: fmt.Errorf("read tags: %w", err)}
	}
	result := TrackTags{Title: tags.Title, Artist: tags.Artist}
	if len(tags.Pictures) > 0 && tags.Pictures[0] != nil {
		result.Cover = tags.Pictures[0].Data
	}
	return result, nil
}
