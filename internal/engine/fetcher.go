package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "soundloader/1.0"
)

var (
	// maxTextBodyBytes caps pages, scripts and manifests held in memory.
	maxTextBodyBytes int64 = 32 << 20

	errBodyTooLarge = errors.New("response body too large")
)

// Fetcher performs single-shot GET requests. Implementations never retry.
type Fetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
	FetchFile(ctx context.Context, rawURL string, path string) (int64, error)
}

type FetcherOptions struct {
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
	RequestsPerSecond  float64
	Logger             *zap.Logger
}

type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
	Limiter   *rate.Limiter
	Logger    *zap.Logger
}

func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &HTTPFetcher{
		Client:    &http.Client{Transport: transport},
		UserAgent: userAgent,
		Timeout:   timeout,
		Limiter:   limiter,
		Logger:    logger,
	}
}

func (f *HTTPFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	var body []byte
	err := f.do(ctx, rawURL, func(resp *http.Response) error {
		payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxTextBodyBytes+1))
		if readErr != nil {
			return readErr
		}
		if int64(len(payload)) > maxTextBodyBytes {
			return fmt.Errorf("%w: limit is %s", errBodyTooLarge, humanize.Bytes(uint64(maxTextBodyBytes)))
		}
		body = payload
		return nil
	})
	if err != nil {
		return "", err
	}
	f.logger().Debug("fetched text", zap.String("url", rawURL), zap.String("size", humanize.Bytes(uint64(len(body)))))
	return string(body), nil
}

func (f *HTTPFetcher) FetchFile(ctx context.Context, rawURL string, path string) (int64, error) {
	var written int64
	err := f.do(ctx, rawURL, func(resp *http.Response) error {
		out, createErr := os.Create(path)
		if createErr != nil {
			return createErr
		}
		n, copyErr := io.Copy(out, resp.Body)
		closeErr := out.Close()
		if copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			_ = os.Remove(path)
			return copyErr
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	f.logger().Debug("fetched file", zap.String("url", rawURL), zap.String("path", path), zap.String("size", humanize.Bytes(uint64(written))))
	return written, nil
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL string, consume func(*http.Response) error) error {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for request slot: %w", err)
		}
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &UnexpectedError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{URL: rawURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if err := consume(resp); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return &NetworkError{URL: rawURL, Err: err}
		}
		return &UnexpectedError{URL: rawURL, Err: err}
	}
	return nil
}

func (f *HTTPFetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
