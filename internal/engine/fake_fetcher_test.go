package engine

import (
	"context"
	"os"
	"sync"
)

// fakeFetcher serves canned bodies keyed by exact URL and answers 404 for
// everything else.
type fakeFetcher struct {
	mu        sync.Mutex
	bodies    map[string]string
	requested []string
}

func newFakeFetcher(bodies map[string]string) *fakeFetcher {
	return &fakeFetcher{bodies: bodies}
}

func (f *fakeFetcher) lookup(rawURL string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, rawURL)
	body, ok := f.bodies[rawURL]
	return body, ok
}

func (f *fakeFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, ok := f.lookup(rawURL)
	if !ok {
		return "", &HTTPStatusError{URL: rawURL, StatusCode: 404}
	}
	return body, nil
}

func (f *fakeFetcher) FetchFile(ctx context.Context, rawURL string, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	body, ok := f.lookup(rawURL)
	if !ok {
		return 0, &HTTPStatusError{URL: rawURL, StatusCode: 404}
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

func (f *fakeFetcher) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.requested...)
}
