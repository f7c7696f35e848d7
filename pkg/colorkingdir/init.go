package colorkingdir

import (
	"fmt"
	"os"
)

const gitignoreContent = "local/\n.env\n"

// EnsureStructure creates the local/ and prints/ directories and the
// .gitignore file if they are missing. It is safe to call multiple times.
func EnsureStructure(d Dir) error {
	for _, dir := range []string{d.LocalDir(), d.PrintsDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("colorkingdir: create %s: %w", dir, err)
		}
	}

	if err := ensureGitignore(d); err != nil {
		return fmt.Errorf("colorkingdir: gitignore: %w", err)
	}

	return nil
}

// ensureGitignore creates the .gitignore file if it does not exist.
func ensureGitignore(d Dir) error {
	path := d.GitignorePath()

	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}

	return os.WriteFile(path, []byte(gitignoreContent), 0o600)
}
