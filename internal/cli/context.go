package cli

import (
	"io"

	"github.com/jaa/soundloader/internal/engine"
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

type GlobalOptions struct {
	ConfigPath string
	JSON       bool
	Quiet      bool
	Verbose    bool
	NoColor    bool
	NoInput    bool
}

type AppContext struct {
	Build BuildInfo
	IO    IOStreams
	Opts  GlobalOptions

	// Fetcher and Tagger replace the network and tag writer when set.
	Fetcher engine.Fetcher
	Tagger  engine.Tagger
}
