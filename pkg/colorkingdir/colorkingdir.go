// Package colorkingdir encapsulates all path knowledge for the .colorking/
// directory: configuration, the settings database, logs, and rendered prints.
package colorkingdir

import (
	"os"
	"path/filepath"
)

// DefaultName is the directory name looked up in the working directory.
const DefaultName = ".colorking"

// Dir is a value object that resolves paths within a .colorking/ directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed; use EnsureStructure to create the
// directory layout.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// Root returns the absolute path to the .colorking/ directory.
func (d Dir) Root() string { return d.root }

// ConfigPath returns the path to the main config file.
func (d Dir) ConfigPath() string { return filepath.Join(d.root, "config.yaml") }

// EnvPath returns the path to the optional .env file holding secrets.
func (d Dir) EnvPath() string { return filepath.Join(d.root, ".env") }

// LocalDir returns the path to the local (gitignored) runtime state directory.
func (d Dir) LocalDir() string { return filepath.Join(d.root, "local") }

// SettingsPath returns the path to the persisted settings database.
func (d Dir) SettingsPath() string { return filepath.Join(d.root, "local", "settings.db") }

// LogPath returns the path to the log file written while the TUI owns the terminal.
func (d Dir) LogPath() string { return filepath.Join(d.root, "local", "colorking.log") }

// PrintsDir returns the directory rendered PDFs are written to.
func (d Dir) PrintsDir() string { return filepath.Join(d.root, "prints") }

// GitignorePath returns the path to the .gitignore file inside .colorking/.
func (d Dir) GitignorePath() string { return filepath.Join(d.root, ".gitignore") }

// Exists reports whether the .colorking/ root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}
