package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jaa/soundloader/internal/config"
	"github.com/jaa/soundloader/internal/engine"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

type Check struct {
	Severity Severity `json:"severity"`
	Name     string   `json:"name"`
	Message  string   `json:"message"`
}

type Report struct {
	Checks []Check `json:"checks"`
}

func (r Report) HasErrors() bool {
	return r.ErrorCount() > 0
}

func (r Report) ErrorCount() int {
	count := 0
	for _, check := range r.Checks {
		if check.Severity == SeverityError {
			count++
		}
	}
	return count
}

type Checker struct {
	CheckWritable func(string) error
	FetchText     func(context.Context, string) (string, error)
	TempDir       func() string
}

func NewChecker(fetcher engine.Fetcher) *Checker {
	return &Checker{
		CheckWritable: checkDirWritable,
		FetchText:     fetcher.FetchText,
		TempDir:       os.TempDir,
	}
}

func (c *Checker) Check(ctx context.Context, cfg config.Config) Report {
	report := Report{Checks: []Check{}}
	add := func(severity Severity, name string, format string, args ...any) {
		report.Checks = append(report.Checks, Check{Severity: severity, Name: name, Message: fmt.Sprintf(format, args...)})
	}

	if err := config.Validate(cfg); err != nil {
		var validationErr *config.ValidationError
		if errors.As(err, &validationErr) {
			for _, problem := range validationErr.Problems {
				add(SeverityError, "config", "%s", problem)
			}
		} else {
			add(SeverityError, "config", "%v", err)
		}
	} else {
		add(SeverityInfo, "config", "config is valid")
	}

	c.checkDirectory(&report, "output_dir", cfg.OutputDir, "")
	c.checkDirectory(&report, "scratch_dir", cfg.ScratchDir, c.tempDir())

	if c.FetchText == nil {
		add(SeverityWarn, "network", "no fetcher configured; endpoint checks skipped")
		return report
	}
	script, err := c.FetchText(ctx, cfg.Endpoints.ClientScriptURL)
	switch {
	case err != nil:
		add(SeverityWarn, "network", "client script %s is unreachable (%v); downloads will fall back to scripts referenced by the track page", cfg.Endpoints.ClientScriptURL, err)
	default:
		if _, ok := engine.ExtractClientToken(script); ok {
			add(SeverityInfo, "network", "client script %s carries a client token", cfg.Endpoints.ClientScriptURL)
		} else {
			add(SeverityWarn, "network", "client script %s has no client token; update endpoints.client_script_url", cfg.Endpoints.ClientScriptURL)
		}
	}

	return report
}

func (c *Checker) checkDirectory(report *Report, key string, raw string, fallback string) {
	if strings.TrimSpace(raw) == "" {
		raw = fallback
	}
	dir, err := config.ExpandPath(raw)
	if err != nil || dir == "" {
		report.Checks = append(report.Checks, Check{Severity: SeverityError, Name: "filesystem", Message: fmt.Sprintf("%s is not a valid path", key)})
		return
	}
	if err := c.CheckWritable(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			report.Checks = append(report.Checks, Check{Severity: SeverityWarn, Name: "filesystem", Message: fmt.Sprintf("%s %s does not exist yet; it will be created", key, dir)})
			return
		}
		report.Checks = append(report.Checks, Check{Severity: SeverityError, Name: "filesystem", Message: fmt.Sprintf("%s %s is not writable: %v", key, dir, err)})
		return
	}
	report.Checks = append(report.Checks, Check{Severity: SeverityInfo, Name: "filesystem", Message: fmt.Sprintf("%s %s is writable", key, dir)})
}

func (c *Checker) tempDir() string {
	if c.TempDir == nil {
		return os.TempDir()
	}
	return c.TempDir()
}

func checkDirWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	file, err := os.CreateTemp(path, ".soundloader-write-check-*")
	if err != nil {
		return err
	}
	name := file.Name()
	_ = file.Close()
	_ = os.Remove(name)
	return nil
}
