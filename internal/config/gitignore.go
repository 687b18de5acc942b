package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// gitignoreContent keeps persisted cache blobs and logs out of version control
// when the data directory sits inside a repository.
const gitignoreContent = `# storecache persisted cache data (auto-generated)
*.json
*.json.tmp
*.log
`

// GitignoreContent returns the .gitignore content written into cache data
// directories. Exported for testing.
func GitignoreContent() string {
	return gitignoreContent
}

// EnsureGitignore creates dir if needed and writes a .gitignore into it unless
// one is already present. It reports whether a file was created.
func EnsureGitignore(dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("creating data directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, ".gitignore")
	//nolint:gosec // .gitignore must be world-readable (0644).
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err = f.WriteString(gitignoreContent); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return false, fmt.Errorf("closing %s: %w", path, err)
	}
	return true, nil
}
