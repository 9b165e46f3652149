package output

import "time"

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type EventName string

const (
	EventResolveStarted      EventName = "resolve_started"
	EventResolveFinished     EventName = "resolve_finished"
	EventResolveFailed       EventName = "resolve_failed"
	EventClientTokenMissing  EventName = "client_token_missing"
	EventMaterializeStarted  EventName = "materialize_started"
	EventSegmentsFetched     EventName = "segments_fetched"
	EventTaggingSkipped      EventName = "tagging_skipped"
	EventMaterializeFinished EventName = "materialize_finished"
	EventMaterializeFailed   EventName = "materialize_failed"
)

type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Event     EventName      `json:"event"`
	Step      string         `json:"step,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}
