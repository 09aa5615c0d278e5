// Package cachepath resolves where the SQLite audio cache lives.
package cachepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvVar overrides the default cache location.
const EnvVar = "CHATLINE_CACHE"

// ResolveCachePath returns flagValue when set, then $CHATLINE_CACHE, then
// ~/.chatline/audio.db. The parent directory of the default is created.
func ResolveCachePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(EnvVar); env != "" {
		return env, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find home directory: %w", err)
	}

	dir := filepath.Join(home, ".chatline")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "audio.db"), nil
}
