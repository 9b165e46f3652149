package engine

import (
	"bufio"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/grafov/m3u8"
)

const markerInitSegment = "#EXT-X-MAP"

// ParsePlaylist turns HLS media playlist text into an ordered segment list.
//
// The init segment is detected by its marker rather than by position and is
// always index 0. The marker line is a tag line, so it contributes only the
// init entry; it is not emitted a second time as a media segment, which
// would write the init bytes twice into the assembled file.
func ParsePlaylist(text string) SegmentList {
	var (
		initURL string
		hasInit bool
		media   []string
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.Contains(line, markerInitSegment) {
			if !hasInit {
				if uri, ok := initSegmentURL(line); ok {
					initURL = uri
					hasInit = true
				}
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		media = append(media, line)
	}

	segments := make(SegmentList, 0, len(media)+1)
	next := 0
	if hasInit {
		segments = append(segments, Segment{Index: 0, URL: initURL, IsInit: true})
		next = 1
	}
	for _, uri := range media {
		segments = append(segments, Segment{Index: next, URL: uri})
		next++
	}
	return segments
}

// initSegmentURL takes the text between the first "https" and the next quote.
// Playlists that reference the init segment relatively fall back to the URI
// attribute value.
func initSegmentURL(line string) (string, bool) {
	if start := strings.Index(line, "https"); start >= 0 {
		end := strings.IndexByte(line[start:], '"')
		if end < 0 {
			return line[start:], true
		}
		return line[start : start+end], true
	}

	const attr = `URI="`
	start := strings.Index(line, attr)
	if start < 0 {
		return "", false
	}
	start += len(attr)
	end := strings.IndexByte(line[start:], '"')
	if end <= 0 {
		return "", false
	}
	return line[start : start+end], true
}

// ResolveSegmentURLs makes relative segment references absolute against the
// playlist URL.
func ResolveSegmentURLs(playlistURL string, segments SegmentList) (SegmentList, error) {
	base, err := url.Parse(strings.TrimSpace(playlistURL))
	if err != nil {
		return nil, fmt.Errorf("parse playlist url: %w", err)
	}
	resolved := make(SegmentList, 0, len(segments))
	for _, segment := range segments {
		ref, err := url.Parse(segment.URL)
		if err != nil {
			return nil, fmt.Errorf("parse segment %d url: %w", segment.Index, err)
		}
		if !ref.IsAbs() {
			segment.URL = base.ResolveReference(ref).String()
		}
		resolved = append(resolved, segment)
	}
	return resolved, nil
}

// InspectPlaylist decodes the playlist structurally for duration reporting.
func InspectPlaylist(text string) (PlaylistInfo, error) {
	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return PlaylistInfo{}, fmt.Errorf("decode playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return PlaylistInfo{}, fmt.Errorf("expected media playlist")
	}
	media, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return PlaylistInfo{}, fmt.Errorf("unexpected playlist type %T", playlist)
	}

	info := PlaylistInfo{
		TargetDuration: secondsToDuration(media.TargetDuration),
	}
	for _, segment := range media.Segments {
		if segment == nil {
			continue
		}
		info.MediaSegments++
		info.Duration += secondsToDuration(segment.Duration)
	}
	return info, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
