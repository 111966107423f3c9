package whisper

import (
	"path/filepath"
	"strings"
)

// CleanPath normalizes a user-supplied path, stripping shell artifacts such as
// a PowerShell call operator prefix and surrounding quotes.
func CleanPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "& ")

	if len(path) >= 2 {
		if (strings.HasPrefix(path, "'") && strings.HasSuffix(path, "'")) ||
			(strings.HasPrefix(path, `"`) && strings.HasSuffix(path, `"`)) {
			path = path[1 : len(path)-1]
		}
	}

	path = strings.ReplaceAll(path, "''", "'")

	return filepath.Clean(path)
}
