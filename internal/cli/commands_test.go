package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jaa/soundloader/internal/config"
	"github.com/jaa/soundloader/internal/engine"
	"github.com/jaa/soundloader/internal/exitcode"
)

const (
	testTrackURL  = "https://soundcloud.com/dj-test/night-drive"
	testScriptURL = "https://a-v2.sndcdn.com/assets/0-live.js"
	testPlaylist  = "https://cf-hls-media.sndcdn.com/playlist/abc.m3u8"
)

const testPage = `<html><head>
<meta property="twitter:player" content="https://w.soundcloud.com/player/?url=track">
<meta property="twitter:title" content="Night Drive">
<meta property="og:image" content="https://i1.sndcdn.com/artworks-abc-large.jpg">
</head><body>
<h1><a href="/dj-test/night-drive">Night Drive</a> by <a href="/dj-test">DJ Test</a></h1>
<script>{"transcodings":[{"url":"https://api-v2.soundcloud.com/media/soundcloud:tracks:123/abc-def/stream/hls"}]}</script>
</body></html>`

const testPlaylistText = `#EXTM3U
#EXT-X-TARGETDURATION:10
#EXT-X-MAP:URI="https://cf-hls-media.sndcdn.com/init/abc.mp4"
#EXTINF:10.0,
media/1.m4s
#EXTINF:10.0,
media/2.m4s
#EXT-X-ENDLIST
`

func testBodies() map[string]string {
	return map[string]string{
		testTrackURL:  testPage,
		testScriptURL: `var q="?client_id=tok123";`,
		config.DefaultStreamAPIBase + "123/abc-def/stream/hls?client_id=tok123": `{"url":"` + testPlaylist + `"}`,
		testPlaylist: testPlaylistText,
		"https://cf-hls-media.sndcdn.com/init/abc.mp4":          "INIT",
		"https://cf-hls-media.sndcdn.com/playlist/media/1.m4s":  "AAA",
		"https://cf-hls-media.sndcdn.com/playlist/media/2.m4s":  "BBB",
		"https://i1.sndcdn.com/artworks-abc-t500x500.jpg":       "JPEGDATA",
	}
}

type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (f *stubFetcher) body(rawURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.bodies[rawURL]
	if !ok {
		return "", &engine.HTTPStatusError{URL: rawURL, StatusCode: 404}
	}
	return body, nil
}

func (f *stubFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.body(rawURL)
}

func (f *stubFetcher) FetchFile(ctx context.Context, rawURL string, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	body, err := f.body(rawURL)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

type stubTagger struct {
	titles []string
}

func (s *stubTagger) Tag(filePath string, coverPath string, title string, artist string) error {
	s.titles = append(s.titles, title)
	return nil
}

func writeTestConfig(t *testing.T, dir string) (string, string) {
	t.Helper()
	outputDir := filepath.Join(dir, "music")
	configPath := filepath.Join(dir, "config.yaml")
	payload := `version: 1
output_dir: "` + outputDir + `"
scratch_dir: "` + filepath.Join(dir, "scratch") + `"
concurrency: 2
endpoints:
  client_script_url: "` + testScriptURL + `"
`
	if err := os.WriteFile(configPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, outputDir
}

func newTestApp(bodies map[string]string) (*AppContext, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	app := &AppContext{
		Build:   BuildInfo{Version: "test"},
		IO:      IOStreams{In: strings.NewReader(""), Out: stdout, ErrOut: stderr},
		Fetcher: &stubFetcher{bodies: bodies},
		Tagger:  &stubTagger{},
	}
	return app, stdout, stderr
}

func TestResolveCommandJSONPreview(t *testing.T) {
	configPath, _ := writeTestConfig(t, t.TempDir())
	app, stdout, _ := newTestApp(testBodies())

	root := newRootCommand(app)
	root.SetArgs([]string{"resolve", testTrackURL, "--config", configPath, "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	var payload struct {
		Event string       `json:"event"`
		Track trackPreview `json:"track"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode preview line: %v", err)
	}
	if payload.Event != "track_preview" {
		t.Fatalf("expected track_preview event, got %q", payload.Event)
	}
	if payload.Track.TrackID != "123/abc-def" || payload.Track.Segments != 2 || payload.Track.Artist != "DJ Test" {
		t.Fatalf("unexpected preview: %+v", payload.Track)
	}
}

func TestResolveCommandHumanTable(t *testing.T) {
	configPath, _ := writeTestConfig(t, t.TempDir())
	app, stdout, _ := newTestApp(testBodies())

	root := newRootCommand(app)
	root.SetArgs([]string{"resolve", testTrackURL, "--config", configPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	for _, want := range []string{"Night Drive", "DJ Test", "artworks-abc-t500x500.jpg"} {
		if !strings.Contains(stdout.String(), want) {
			t.Fatalf("expected %q in preview, got:\n%s", want, stdout.String())
		}
	}
}

func TestGetCommandWritesTrack(t *testing.T) {
	configPath, outputDir := writeTestConfig(t, t.TempDir())
	app, stdout, _ := newTestApp(testBodies())

	root := newRootCommand(app)
	root.SetArgs([]string{"get", testTrackURL, "--config", configPath, "--yes", "--filename", "drive"})
	if err := root.Execute(); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "drive.m4a"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "INITAAABBB" {
		t.Fatalf("unexpected file contents %q", data)
	}
	if !strings.Contains(stdout.String(), "DONE:") {
		t.Fatalf("expected completion line, got: %s", stdout.String())
	}
	if titles := app.Tagger.(*stubTagger).titles; len(titles) != 1 || titles[0] != "Night Drive" {
		t.Fatalf("unexpected tag calls: %v", titles)
	}
}

func TestGetCommandOutputDirFlag(t *testing.T) {
	tmp := t.TempDir()
	configPath, _ := writeTestConfig(t, tmp)
	override := filepath.Join(tmp, "elsewhere")
	app, _, _ := newTestApp(testBodies())

	root := newRootCommand(app)
	root.SetArgs([]string{"get", testTrackURL, "--config", configPath, "--yes", "--output-dir", override, "--quiet"})
	if err := root.Execute(); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	entries, err := os.ReadDir(override)
	if err != nil {
		t.Fatalf("read override dir: %v", err)
	}
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".m4a" {
		t.Fatalf("expected a single .m4a in %s, got %v", override, entries)
	}
}

func TestGetCommandExitCodes(t *testing.T) {
	missingSegment := testBodies()
	delete(missingSegment, "https://cf-hls-media.sndcdn.com/playlist/media/2.m4s")
	missingPage := testBodies()
	delete(missingPage, testTrackURL)

	tests := []struct {
		name   string
		url    string
		bodies map[string]string
		want   int
	}{
		{name: "invalid url", url: "http://example.com/track", bodies: testBodies(), want: exitcode.InvalidUsage},
		{name: "resolve failure", url: testTrackURL, bodies: missingPage, want: exitcode.ResolveFailed},
		{name: "materialize failure", url: testTrackURL, bodies: missingSegment, want: exitcode.MaterializeFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			configPath, outputDir := writeTestConfig(t, t.TempDir())
			app, _, _ := newTestApp(tc.bodies)

			root := newRootCommand(app)
			root.SetArgs([]string{"get", tc.url, "--config", configPath, "--yes", "--json"})
			err := root.Execute()
			if err == nil {
				t.Fatalf("expected failure")
			}
			if got := mapExitCode(err); got != tc.want {
				t.Fatalf("exit code = %d, want %d (err: %v)", got, tc.want, err)
			}
			entries, _ := os.ReadDir(outputDir)
			for _, entry := range entries {
				if filepath.Ext(entry.Name()) == ".m4a" {
					t.Fatalf("no output expected after failure, found %s", entry.Name())
				}
			}
		})
	}
}

func TestGetCommandRequiresURL(t *testing.T) {
	app, _, _ := newTestApp(testBodies())
	root := newRootCommand(app)
	root.SetArgs([]string{"get"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected missing argument error")
	}
}

func TestValidateCommand(t *testing.T) {
	configPath, _ := writeTestConfig(t, t.TempDir())
	app, stdout, _ := newTestApp(nil)

	root := newRootCommand(app)
	root.SetArgs([]string{"validate", "--config", configPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "Config is valid." {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestValidateCommandRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("version: 2\noutput_dir: relative\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	app, _, _ := newTestApp(nil)

	root := newRootCommand(app)
	root.SetArgs([]string{"validate", "--config", configPath})
	err := root.Execute()
	if got := mapExitCode(err); got != exitcode.InvalidConfig {
		t.Fatalf("exit code = %d, want %d (err: %v)", got, exitcode.InvalidConfig, err)
	}
}

func TestDoctorCommandJSON(t *testing.T) {
	configPath, _ := writeTestConfig(t, t.TempDir())
	app, stdout, _ := newTestApp(testBodies())

	root := newRootCommand(app)
	root.SetArgs([]string{"doctor", "--config", configPath, "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "carries a client token") {
		t.Fatalf("expected token check in report, got: %s", stdout.String())
	}
}

func TestInitCommandRefusesExistingConfigWithoutForce(t *testing.T) {
	configPath, _ := writeTestConfig(t, t.TempDir())
	app, _, _ := newTestApp(nil)

	root := newRootCommand(app)
	root.SetArgs([]string{"init", "--config", configPath, "--no-input"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected --force hint, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	app, stdout, _ := newTestApp(nil)
	root := newRootCommand(app)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "soundloader version test\n") {
		t.Fatalf("unexpected version output %q", stdout.String())
	}
}

func TestVersionCommandJSON(t *testing.T) {
	app, stdout, _ := newTestApp(nil)
	app.Build.Commit = "abc123"
	root := newRootCommand(app)
	root.SetArgs([]string{"version", "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("decode version: %v (%q)", err, stdout.String())
	}
	if payload["version"] != "test" || payload["commit"] != "abc123" || payload["build_date"] != "unknown" {
		t.Fatalf("unexpected version payload: %v", payload)
	}
}

func TestPromptYesNo(t *testing.T) {
	for input, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "yes": true} {
		app := &AppContext{IO: IOStreams{In: strings.NewReader(input), Out: &bytes.Buffer{}}}
		got, err := promptYesNo(app, "Continue?")
		if err != nil {
			t.Fatalf("prompt %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("prompt %q = %v, want %v", input, got, want)
		}
	}
}

func TestPipelineExitCodeInterrupted(t *testing.T) {
	err := &engine.MaterializeError{Step: engine.StepFetchSegments, Err: context.Canceled}
	if got := pipelineExitCode(err); got != exitcode.Interrupted {
		t.Fatalf("exit code = %d, want %d", got, exitcode.Interrupted)
	}
	if got := pipelineExitCode(errors.New("other")); got != exitcode.RuntimeFailure {
		t.Fatalf("exit code = %d, want %d", got, exitcode.RuntimeFailure)
	}
}
