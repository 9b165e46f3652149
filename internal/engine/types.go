package engine

import (
	"time"
)

const (
	StepValidate      = "validate_url"
	StepFetchPage     = "fetch_page"
	StepExtract       = "extract_metadata"
	StepClientToken   = "client_token"
	StepStream        = "stream_manifest"
	StepPlaylist      = "playlist"
	StepWorkspace     = "workspace"
	StepFetchSegments = "fetch_segments"
	StepAssemble      = "assemble"
	StepTag           = "tag"
	StepPublish       = "publish"
)

// TrackReference identifies a track as discovered on its page.
type TrackReference struct {
	SourceURL string
	TrackID   string
	PlayerURL string
}

type TrackMetadata struct {
	RawTitle          string
	Filename          string
	Artist            string
	Title             string
	ThumbnailURL      string
	ThumbnailFilename string
}

// StreamDescriptor is the resolved access chain. The client token has no
// known lifetime, so descriptors are never reused across resolve calls.
type StreamDescriptor struct {
	ClientToken     string
	SignedStreamURL string
	PlaylistURL     string
}

type Segment struct {
	Index  int
	URL    string
	IsInit bool
}

type SegmentList []Segment

func (l SegmentList) Init() (Segment, bool) {
	for _, segment := range l {
		if segment.IsInit {
			return segment, true
		}
	}
	return Segment{}, false
}

func (l SegmentList) MediaCount() int {
	count := 0
	for _, segment := range l {
		if !segment.IsInit {
			count++
		}
	}
	return count
}

type PlaylistInfo struct {
	Duration       time.Duration
	TargetDuration time.Duration
	MediaSegments  int
}

// Resolution is the request-scoped result of Resolve. Materialize only reads it.
type Resolution struct {
	Reference TrackReference
	Metadata  TrackMetadata
	Stream    StreamDescriptor
	Segments  SegmentList
	Playlist  PlaylistInfo
}

type AssembledTrack struct {
	Path      string
	Title     string
	Artist    string
	CoverPath string
	Bytes     int64
	Tagged    bool
	TagErr    error
}

type ProgressStage string

const (
	ProgressResolving   ProgressStage = "resolving"
	ProgressDownloading ProgressStage = "downloading"
	ProgressAssembling  ProgressStage = "assembling"
	ProgressTagging     ProgressStage = "tagging"
	ProgressDone        ProgressStage = "done"
)

// Progress is coarse: Total is zero while the stage is indeterminate.
type Progress struct {
	Stage     ProgressStage
	Step      string
	Completed int
	Total     int
}

func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

type ProgressFunc func(Progress)
