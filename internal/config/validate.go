package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid config"
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Problems, "; "))
}

func Validate(cfg Config) error {
	problems := []string{}

	if cfg.Version != 1 {
		problems = append(problems, "version must be 1")
	}

	outputDir, err := ExpandPath(cfg.OutputDir)
	if err != nil || strings.TrimSpace(outputDir) == "" {
		problems = append(problems, "output_dir must be a valid path")
	} else if !filepath.IsAbs(outputDir) {
		problems = append(problems, "output_dir must resolve to an absolute path")
	}

	if strings.TrimSpace(cfg.ScratchDir) != "" {
		scratchDir, scratchErr := ExpandPath(cfg.ScratchDir)
		if scratchErr != nil || !filepath.IsAbs(scratchDir) {
			problems = append(problems, "scratch_dir must resolve to an absolute path")
		}
	}

	if cfg.RequestTimeoutSeconds <= 0 {
		problems = append(problems, "request_timeout_seconds must be > 0")
	}
	if cfg.SegmentTimeoutSeconds <= 0 {
		problems = append(problems, "segment_timeout_seconds must be > 0")
	}
	if cfg.Concurrency < 0 {
		problems = append(problems, "concurrency must be >= 0")
	}
	if cfg.RequestsPerSecond < 0 {
		problems = append(problems, "requests_per_second must be >= 0")
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		problems = append(problems, "user_agent must be set")
	}

	if err := validateURL(cfg.Endpoints.ClientScriptURL); err != nil {
		problems = append(problems, fmt.Sprintf("endpoints.client_script_url is invalid: %v", err))
	}
	if err := validateURL(cfg.Endpoints.StreamAPIBase); err != nil {
		problems = append(problems, fmt.Sprintf("endpoints.stream_api_base is invalid: %v", err))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
