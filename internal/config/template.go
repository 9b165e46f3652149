package config

import "fmt"

func DefaultTemplate() string {
	cfg := DefaultConfig()
	return fmt.Sprintf(`version: 1
output_dir: %q
# scratch_dir: "/var/tmp"
request_timeout_seconds: %d
segment_timeout_seconds: %d
concurrency: %d
requests_per_second: 0
insecure_skip_verify: false
user_agent: %q
overwrite: false
endpoints:
  client_script_url: %q
  stream_api_base: %q
`, cfg.OutputDir, cfg.RequestTimeoutSeconds, cfg.SegmentTimeoutSeconds, cfg.Concurrency,
		cfg.UserAgent, cfg.Endpoints.ClientScriptURL, cfg.Endpoints.StreamAPIBase)
}
