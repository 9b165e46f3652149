package engine

import (
	"html"
	"path"
	"regexp"
	"strings"
)

const (
	markerTwitterPlayer = "twitter:player"
	markerTwitterTitle  = "twitter:title"
	markerThumbnailBase = "i1.sndcdn.com/a"

	DefaultFilename = "soundloader_download"
)

var (
	forbiddenFilenameChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F\x7F]`)
	problematicFilenameChars = regexp.MustCompile(`[,;!@#$%^&()+]`)
)

// ExtractPlayerURL returns the social-card player URL or "" when the page has none.
func ExtractPlayerURL(document string) string {
	value, _ := contentAfter(document, markerTwitterPlayer)
	return value
}

// ExtractMetadata scans a track page for title, artist and thumbnail. Each
// field falls back to its default independently.
func ExtractMetadata(document string) TrackMetadata {
	rawTitle := DefaultFilename
	if value, ok := contentAfter(document, markerTwitterTitle); ok && strings.TrimSpace(value) != "" {
		rawTitle = strings.TrimSpace(html.UnescapeString(value))
	}

	title, artist := extractTitleAndArtist(document, rawTitle)
	filename := SanitizeFilename(rawTitle)
	thumbnailURL, thumbnailFilename := deriveThumbnail(extractThumbnailURL(document), filename)

	return TrackMetadata{
		RawTitle:          rawTitle,
		Filename:          filename,
		Artist:            artist,
		Title:             title,
		ThumbnailURL:      thumbnailURL,
		ThumbnailFilename: thumbnailFilename,
	}
}

// contentAfter finds token, then the next content attribute, and returns the
// quote-delimited value that follows it.
func contentAfter(document string, token string) (string, bool) {
	tokenAt := strings.Index(document, token)
	if tokenAt < 0 {
		return "", false
	}
	from := tokenAt + len(token)
	contentAt := strings.Index(document[from:], "content")
	if contentAt < 0 {
		return "", false
	}
	rest := document[from+contentAt+len("content"):]
	quoteAt := strings.IndexAny(rest, `"'`)
	if quoteAt < 0 {
		return "", false
	}
	quote := rest[quoteAt]
	rest = rest[quoteAt+1:]
	end := strings.IndexByte(rest, quote)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func extractThumbnailURL(document string) string {
	start := strings.Index(document, markerThumbnailBase)
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(document[start:], '"')
	if end < 0 {
		return ""
	}
	return "https://" + document[start:start+end]
}

func extractTitleAndArtist(document string, fallbackTitle string) (string, string) {
	start := strings.Index(document, "<h1")
	if start < 0 {
		return fallbackTitle, ""
	}
	if !strings.Contains(document, "<meta") {
		return fallbackTitle, ""
	}
	// Without a <meta after the heading the region runs to the end of the page.
	region := document[start:]
	if end := strings.Index(region, "<meta"); end >= 0 {
		region = region[:end]
	}
	anchors := anchorTexts(region)
	if len(anchors) < 2 {
		return fallbackTitle, ""
	}

	title := strings.TrimSpace(html.UnescapeString(anchors[0]))
	artist := strings.TrimSpace(html.UnescapeString(anchors[len(anchors)-1]))
	if title == "" {
		title = fallbackTitle
	}
	return title, artist
}

func anchorTexts(region string) []string {
	texts := []string{}
	for offset := 0; offset < len(region); {
		open := strings.Index(region[offset:], "<a")
		if open < 0 {
			break
		}
		open += offset
		tagEnd := strings.IndexByte(region[open:], '>')
		if tagEnd < 0 {
			break
		}
		textStart := open + tagEnd + 1
		closeAt := strings.Index(region[textStart:], "</a")
		if closeAt < 0 {
			break
		}
		texts = append(texts, region[textStart:textStart+closeAt])
		offset = textStart + closeAt + len("</a")
	}
	return texts
}

// SanitizeFilename drops non-ASCII, replaces path-hostile and control
// characters, turns spaces into underscores and trims dots. The steps are
// ordered so that a second pass changes nothing.
func SanitizeFilename(name string) string {
	var ascii strings.Builder
	for _, r := range name {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}

	cleaned := forbiddenFilenameChars.ReplaceAllString(ascii.String(), "_")
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	cleaned = problematicFilenameChars.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return DefaultFilename
	}
	return cleaned
}

// deriveThumbnail asks the CDN for the 500x500 variant and picks a local
// filename from the image extension. A webp URL is rewritten to the JPEG
// variant served by the same CDN.
func deriveThumbnail(rawURL string, filename string) (string, string) {
	if rawURL == "" {
		return "", ""
	}
	thumbnailURL := strings.ReplaceAll(rawURL, "-large", "-t500x500")

	switch {
	case strings.HasSuffix(thumbnailURL, ".jpg"):
		return thumbnailURL, filename + ".jpg"
	case strings.HasSuffix(thumbnailURL, ".webp"):
		thumbnailURL = strings.ReplaceAll(thumbnailURL, "vi_webp", "vi")
		thumbnailURL = strings.TrimSuffix(thumbnailURL, ".webp") + ".jpg"
		return thumbnailURL, filename + ".jpg"
	case strings.HasSuffix(thumbnailURL, ".png"):
		return thumbnailURL, filename + ".png"
	default:
		return thumbnailURL, filename + path.Ext(thumbnailURL)
	}
}
