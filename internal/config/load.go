package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const envPrefix = "SOUNDLOADER_"

type LoadOptions struct {
	ExplicitPath string
	WorkingDir   string
	Env          map[string]string
}

type fileConfig struct {
	Version               *int          `yaml:"version"`
	OutputDir             *string       `yaml:"output_dir"`
	ScratchDir            *string       `yaml:"scratch_dir"`
	RequestTimeoutSeconds *int          `yaml:"request_timeout_seconds"`
	SegmentTimeoutSeconds *int          `yaml:"segment_timeout_seconds"`
	Concurrency           *int          `yaml:"concurrency"`
	RequestsPerSecond     *float64      `yaml:"requests_per_second"`
	InsecureSkipVerify    *bool         `yaml:"insecure_skip_verify"`
	UserAgent             *string       `yaml:"user_agent"`
	Overwrite             *bool         `yaml:"overwrite"`
	Endpoints             fileEndpoints `yaml:"endpoints"`
}

type fileEndpoints struct {
	ClientScriptURL *string `yaml:"client_script_url"`
	StreamAPIBase   *string `yaml:"stream_api_base"`
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	cwd := opts.WorkingDir
	if strings.TrimSpace(cwd) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("resolve working directory: %w", err)
		}
		cwd = wd
	}

	env := opts.Env
	if env == nil {
		env = osEnvMap()
	}

	if explicit := strings.TrimSpace(opts.ExplicitPath); explicit != "" {
		if err := mergeFile(&cfg, explicit, true); err != nil {
			return Config{}, err
		}
	} else {
		userPath, err := UserConfigPath()
		if err != nil {
			return Config{}, err
		}
		if err := mergeFile(&cfg, userPath, false); err != nil {
			return Config{}, err
		}

		if err := mergeFile(&cfg, ProjectConfigPath(cwd), false); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg, env); err != nil {
		return Config{}, err
	}

	normalize(&cfg)
	return cfg, nil
}

func mergeFile(cfg *Config, path string, required bool) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file does not exist: %s", path)
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(payload, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Version != nil {
		cfg.Version = *fc.Version
	}
	if fc.OutputDir != nil {
		cfg.OutputDir = strings.TrimSpace(*fc.OutputDir)
	}
	if fc.ScratchDir != nil {
		cfg.ScratchDir = strings.TrimSpace(*fc.ScratchDir)
	}
	if fc.RequestTimeoutSeconds != nil {
		cfg.RequestTimeoutSeconds = *fc.RequestTimeoutSeconds
	}
	if fc.SegmentTimeoutSeconds != nil {
		cfg.SegmentTimeoutSeconds = *fc.SegmentTimeoutSeconds
	}
	if fc.Concurrency != nil {
		cfg.Concurrency = *fc.Concurrency
	}
	if fc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *fc.RequestsPerSecond
	}
	if fc.InsecureSkipVerify != nil {
		cfg.InsecureSkipVerify = *fc.InsecureSkipVerify
	}
	if fc.UserAgent != nil {
		cfg.UserAgent = strings.TrimSpace(*fc.UserAgent)
	}
	if fc.Overwrite != nil {
		cfg.Overwrite = *fc.Overwrite
	}
	if fc.Endpoints.ClientScriptURL != nil {
		cfg.Endpoints.ClientScriptURL = strings.TrimSpace(*fc.Endpoints.ClientScriptURL)
	}
	if fc.Endpoints.StreamAPIBase != nil {
		cfg.Endpoints.StreamAPIBase = strings.TrimSpace(*fc.Endpoints.StreamAPIBase)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, env map[string]string) error {
	if value := envValue(env, "OUTPUT_DIR"); value != "" {
		cfg.OutputDir = value
	}
	if value := envValue(env, "SCRATCH_DIR"); value != "" {
		cfg.ScratchDir = value
	}
	if value := envValue(env, "USER_AGENT"); value != "" {
		cfg.UserAgent = value
	}
	if value := envValue(env, "CLIENT_SCRIPT_URL"); value != "" {
		cfg.Endpoints.ClientScriptURL = value
	}
	if value := envValue(env, "STREAM_API_BASE"); value != "" {
		cfg.Endpoints.StreamAPIBase = value
	}

	ints := []struct {
		key    string
		target *int
	}{
		{key: "REQUEST_TIMEOUT_SECONDS", target: &cfg.RequestTimeoutSeconds},
		{key: "SEGMENT_TIMEOUT_SECONDS", target: &cfg.SegmentTimeoutSeconds},
		{key: "CONCURRENCY", target: &cfg.Concurrency},
	}
	for _, item := range ints {
		value := envValue(env, item.key)
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s%s value %q: %w", envPrefix, item.key, value, err)
		}
		*item.target = parsed
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{key: "INSECURE_SKIP_VERIFY", target: &cfg.InsecureSkipVerify},
		{key: "OVERWRITE", target: &cfg.Overwrite},
	}
	for _, item := range bools {
		value := envValue(env, item.key)
		if value == "" {
			continue
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s%s value %q: %w", envPrefix, item.key, value, err)
		}
		*item.target = parsed
	}

	if value := envValue(env, "REQUESTS_PER_SECOND"); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %sREQUESTS_PER_SECOND value %q: %w", envPrefix, value, err)
		}
		cfg.RequestsPerSecond = parsed
	}
	return nil
}

func envValue(env map[string]string, key string) string {
	return strings.TrimSpace(env[envPrefix+key])
}

func normalize(cfg *Config) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if strings.TrimSpace(cfg.Endpoints.ClientScriptURL) == "" {
		cfg.Endpoints.ClientScriptURL = DefaultClientScriptURL
	}
	if strings.TrimSpace(cfg.Endpoints.StreamAPIBase) == "" {
		cfg.Endpoints.StreamAPIBase = DefaultStreamAPIBase
	}
}

func osEnvMap() map[string]string {
	result := map[string]string{}
	for _, pair := range os.Environ() {
		pieces := strings.SplitN(pair, "=", 2)
		if len(pieces) == 2 {
			result[pieces[0]] = pieces[1]
		}
	}
	return result
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory %s: %w", dir, err)
	}
	return nil
}
