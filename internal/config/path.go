package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appName = "soundloader"

func UserConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); strings.TrimSpace(xdg) != "" {
		return filepath.Join(xdg, appName, "config.yaml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.yaml"), nil
}

func ProjectConfigPath(cwd string) string {
	return filepath.Join(cwd, appName+".yaml")
}

func defaultOutputDir() string {
	return defaultOutputDirFor(runtime.GOOS)
}

// defaultOutputDirFor mirrors where desktop users expect downloads: the
// Downloads folder on macOS, the Music folder elsewhere.
func defaultOutputDirFor(goos string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	if goos == "darwin" {
		return filepath.Join(home, "Downloads")
	}
	return filepath.Join(home, "Music")
}

func ExpandPath(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(strings.TrimSpace(raw))
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~/"))
	}

	return filepath.Clean(expanded), nil
}
