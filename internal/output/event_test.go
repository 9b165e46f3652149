package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestJSONEmitterSerializesEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	emitter := NewJSONEmitter(buf)

	event := Event{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:     LevelInfo,
		Event:     EventResolveFinished,
		Step:      "playlist",
		Message:   "resolved",
		Details: map[string]any{
			"segments": 4,
		},
	}

	if err := emitter.Emit(event); err != nil {
		t.Fatalf("emit: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}

	if decoded["event"] != string(EventResolveFinished) {
		t.Fatalf("unexpected event name: %v", decoded["event"])
	}
	if decoded["step"] != "playlist" {
		t.Fatalf("unexpected step: %v", decoded["step"])
	}
	if decoded["message"] != "resolved" {
		t.Fatalf("unexpected message: %v", decoded["message"])
	}
}

func TestHumanEmitterRoutesByLevel(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	emitter := NewHumanEmitter(stdout, stderr, false, false).WithColor(false)

	events := []Event{
		{Level: LevelInfo, Event: EventResolveStarted, Message: "resolving"},
		{Level: LevelInfo, Event: EventResolveFinished, Message: "resolved"},
		{Level: LevelWarn, Event: EventTaggingSkipped, Message: "tagging skipped"},
		{Level: LevelError, Event: EventMaterializeFailed, Message: "download failed"},
		{Level: LevelInfo, Event: EventMaterializeFinished, Message: "saved out.m4a"},
	}
	for _, event := range events {
		if err := emitter.Emit(event); err != nil {
			t.Fatalf("emit %s: %v", event.Event, err)
		}
	}

	if got, want := stdout.String(), "resolved\nDONE: saved out.m4a\n"; got != want {
		t.Fatalf("unexpected stdout:\n got %q\nwant %q", got, want)
	}
	if got, want := stderr.String(), "WARN: tagging skipped\nERROR: download failed\n"; got != want {
		t.Fatalf("unexpected stderr:\n got %q\nwant %q", got, want)
	}
}

func TestHumanEmitterQuietKeepsFinalResultAndErrors(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	emitter := NewHumanEmitter(stdout, stderr, true, false).WithColor(false)

	_ = emitter.Emit(Event{Level: LevelInfo, Event: EventResolveFinished, Message: "resolved"})
	_ = emitter.Emit(Event{Level: LevelWarn, Event: EventSegmentsFetched, Message: "1 of 4 failed"})
	_ = emitter.Emit(Event{Level: LevelError, Event: EventResolveFailed, Message: "boom"})
	_ = emitter.Emit(Event{Level: LevelInfo, Event: EventMaterializeFinished, Message: "saved"})

	if got := stdout.String(); got != "DONE: saved\n" {
		t.Fatalf("unexpected quiet stdout: %q", got)
	}
	if got := stderr.String(); got != "ERROR: boom\n" {
		t.Fatalf("unexpected quiet stderr: %q", got)
	}
}

func TestMultiEmitterFansOut(t *testing.T) {
	first := &bytes.Buffer{}
	second := &bytes.Buffer{}
	emitter := NewMultiEmitter(NewJSONEmitter(first), NewJSONEmitter(second))

	if err := emitter.Emit(Event{Level: LevelInfo, Event: EventResolveStarted}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if first.Len() == 0 || second.Len() == 0 {
		t.Fatalf("expected both emitters to receive the event")
	}
}
