package engine

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newRoutedFetcher returns an HTTPFetcher whose connections all land on
// server, whatever host the URL names.
func newRoutedFetcher(server *httptest.Server) *HTTPFetcher {
	fetcher := NewHTTPFetcher(FetcherOptions{Timeout: 5 * time.Second})
	addr := server.Listener.Addr().String()
	dialer := &net.Dialer{}
	fetcher.Client = &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // test server certificate
	}}
	return fetcher
}

func TestPipelineEndToEndOverHTTP(t *testing.T) {
	bodies := pipelineBodies()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies["https://"+r.Host+r.URL.RequestURI()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	outputDir := filepath.Join(t.TempDir(), "out")
	tagger := &recordingTagger{}
	pipeline := NewPipeline(newRoutedFetcher(server), Options{
		OutputDir:       outputDir,
		ScratchDir:      t.TempDir(),
		ClientScriptURL: pipelineScriptURL,
		Concurrency:     3,
	}, nil, nil)
	pipeline.Tagger = tagger

	res, err := pipeline.Resolve(context.Background(), pipelineTrackURL, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Stream.ClientToken != "tok123" {
		t.Fatalf("expected token from page script, got %q", res.Stream.ClientToken)
	}
	if res.Metadata.ThumbnailURL != pipelineThumbnail {
		t.Fatalf("unexpected thumbnail %q", res.Metadata.ThumbnailURL)
	}

	track, err := pipeline.Materialize(context.Background(), res, "", nil)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	data, err := os.ReadFile(track.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "INITAAABBBCCC" {
		t.Fatalf("unexpected output bytes %q", data)
	}
	if len(tagger.calls) != 1 || string(tagger.calls[0].cover) != "JPEGDATA" {
		t.Fatalf("expected one tag call with the cover, got %+v", tagger.calls)
	}
	if entries := dirEntries(t, outputDir); len(entries) != 1 {
		t.Fatalf("expected only the final file in %s, got %v", outputDir, entries)
	}
}
