package engine

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultStreamAPIBase = "https://api-v2.soundcloud.com/media/soundcloud:tracks:"
	markerStreamIDBegin  = "media/soundcloud:tracks:"
	markerStreamIDEnd    = "/stream"
	streamHLSSuffix      = "/stream/hls"
)

// ExtractTrackID returns the media identifier of the last HLS transcoding
// referenced by the page, e.g. "1234567/0ab1c2d3-…". Pages that only list
// other transcodings yield the last one of any kind.
func ExtractTrackID(document string) (string, bool) {
	fallback := ""
	for end := len(document); end > 0; {
		at := strings.LastIndex(document[:end], markerStreamIDBegin)
		if at < 0 {
			break
		}
		end = at
		start := at + len(markerStreamIDBegin)
		stop := strings.Index(document[start:], markerStreamIDEnd)
		if stop <= 0 {
			continue
		}
		id := document[start : start+stop]
		if strings.ContainsAny(id, "\"' <>") {
			continue
		}
		if strings.HasPrefix(document[start+stop:], streamHLSSuffix) {
			return id, true
		}
		if fallback == "" {
			fallback = id
		}
	}
	return fallback, fallback != ""
}

// BuildStreamURL fills the fixed media API template. An empty token still
// yields a URL; the API rejects it with an HTTP error.
func BuildStreamURL(apiBase string, trackID string, token string) string {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = DefaultStreamAPIBase
	}
	return apiBase + trackID + streamHLSSuffix + "?client_id=" + token
}

// ExtractPlaylistURL reads the manifest's url field, falling back to the first
// https:// substring bounded by a quote for payloads of any other shape.
func ExtractPlaylistURL(payload string) (string, bool) {
	if gjson.Valid(payload) {
		if value := gjson.Get(payload, "url"); value.Type == gjson.String && strings.HasPrefix(value.String(), "https://") {
			return value.String(), true
		}
	}

	start := strings.Index(payload, "https://")
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(payload[start:], '"')
	if end < 0 {
		return "", false
	}
	return payload[start : start+end], true
}

type StreamResolver struct {
	Fetcher Fetcher
	APIBase string
	Logger  *zap.Logger
}

func (r *StreamResolver) Resolve(ctx context.Context, trackID string, token string) (StreamDescriptor, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	descriptor := StreamDescriptor{
		ClientToken:     token,
		SignedStreamURL: BuildStreamURL(r.APIBase, trackID, token),
	}
	payload, err := r.Fetcher.FetchText(ctx, descriptor.SignedStreamURL)
	if err != nil {
		return descriptor, err
	}
	playlistURL, ok := ExtractPlaylistURL(payload)
	if !ok {
		return descriptor, &ParseError{Source: "stream manifest", Marker: "https://"}
	}
	descriptor.PlaylistURL = playlistURL
	logger.Debug("playlist url resolved", zap.String("step", StepStream), zap.String("track_id", trackID))
	return descriptor, nil
}
