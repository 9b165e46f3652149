package config

type Config struct {
	Version               int       `yaml:"version"`
	OutputDir             string    `yaml:"output_dir"`
	ScratchDir            string    `yaml:"scratch_dir,omitempty"`
	RequestTimeoutSeconds int       `yaml:"request_timeout_seconds"`
	SegmentTimeoutSeconds int       `yaml:"segment_timeout_seconds"`
	Concurrency           int       `yaml:"concurrency"`
	RequestsPerSecond     float64   `yaml:"requests_per_second"`
	InsecureSkipVerify    bool      `yaml:"insecure_skip_verify"`
	UserAgent             string    `yaml:"user_agent"`
	Overwrite             bool      `yaml:"overwrite"`
	Endpoints             Endpoints `yaml:"endpoints"`
}

// Endpoints are overridable so a mirror or a test server can stand in for
// the real hosts.
type Endpoints struct {
	ClientScriptURL string `yaml:"client_script_url"`
	StreamAPIBase   string `yaml:"stream_api_base"`
}

const (
	DefaultClientScriptURL = "https://a-v2.sndcdn.com/assets/0-2e3ca6a5.js"
	DefaultStreamAPIBase   = "https://api-v2.soundcloud.com/media/soundcloud:tracks:"
	DefaultUserAgent       = "soundloader/1.0"
)

func DefaultConfig() Config {
	return Config{
		Version:               1,
		OutputDir:             defaultOutputDir(),
		RequestTimeoutSeconds: 30,
		SegmentTimeoutSeconds: 120,
		Concurrency:           8,
		RequestsPerSecond:     0,
		UserAgent:             DefaultUserAgent,
		Endpoints: Endpoints{
			ClientScriptURL: DefaultClientScriptURL,
			StreamAPIBase:   DefaultStreamAPIBase,
		},
	}
}
