package engine

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultClientScriptURL = "https://a-v2.sndcdn.com/assets/0-2e3ca6a5.js"
	markerClientID         = "client_id="
)

var pageScriptPattern = regexp.MustCompile(`https://a-v2\.sndcdn\.com/assets/[A-Za-z0-9._-]+\.js`)

type TokenResolver struct {
	Fetcher   Fetcher
	ScriptURL string
	Logger    *zap.Logger
}

// Resolve fetches the configured client script and extracts the client
// token. When that script carries no token, the asset scripts referenced by
// the page are tried from last to first. The returned error is the last one
// observed; the token is "" in that case.
func (r *TokenResolver) Resolve(ctx context.Context, pageHTML string) (string, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	candidates := clientScriptCandidates(r.ScriptURL, pageHTML)
	var lastErr error
	for _, scriptURL := range candidates {
		script, err := r.Fetcher.FetchText(ctx, scriptURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			logger.Warn("client script fetch failed", zap.String("step", StepClientToken), zap.String("url", scriptURL), zap.Error(err))
			lastErr = err
			continue
		}
		token, ok := ExtractClientToken(script)
		if ok {
			logger.Debug("client token found", zap.String("step", StepClientToken), zap.String("url", scriptURL))
			return token, nil
		}
		lastErr = &ParseError{Source: scriptURL, Marker: markerClientID}
	}
	if lastErr == nil {
		lastErr = errors.New("no client script candidates")
	}
	return "", lastErr
}

// ExtractClientToken returns the quoted value following client_id= in a
// JavaScript bundle.
func ExtractClientToken(script string) (string, bool) {
	start := strings.Index(script, markerClientID)
	if start < 0 {
		return "", false
	}
	start += len(markerClientID)
	end := strings.IndexByte(script[start:], '"')
	if end < 0 {
		return "", false
	}
	token := script[start : start+end]
	if token == "" {
		return "", false
	}
	return token, true
}

func clientScriptCandidates(configured string, pageHTML string) []string {
	candidates := []string{}
	seen := map[string]struct{}{}
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		candidates = append(candidates, candidate)
	}

	if strings.TrimSpace(configured) == "" {
		configured = DefaultClientScriptURL
	}
	add(configured)

	discovered := pageScriptPattern.FindAllString(pageHTML, -1)
	for i := len(discovered) - 1; i >= 0; i-- {
		add(discovered[i])
	}
	return candidates
}
