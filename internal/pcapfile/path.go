package pcapfile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"firestige.xyz/pcapture/internal/core"
)

// Policy decides what happens when the output file already exists.
type Policy string

const (
	// PolicyOverwrite truncates the existing file.
	PolicyOverwrite Policy = "overwrite"
	// PolicyVersion picks the first unused name-N.ext.
	PolicyVersion Policy = "version"
)

const maxVersions = 100000

// ResolvePath creates dir if needed and returns the output path for fileName.
func ResolvePath(fs afero.Fs, dir, fileName string, policy Policy) (string, error) {
	if fileName == "" {
		return "", fmt.Errorf("%w: empty file name", core.ErrFileCreate)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrFileCreate, err)
	}

	switch policy {
	case PolicyOverwrite, "":
		return filepath.Join(dir, fileName), nil
	case PolicyVersion:
		ext := filepath.Ext(fileName)
		base := strings.TrimSuffix(fileName, ext)
		for i := 1; i <= maxVersions; i++ {
			candidate := filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, i, ext))
			exists, err := afero.Exists(fs, candidate)
			if err != nil {
				return "", fmt.Errorf("%w: %w", core.ErrFileCreate, err)
			}
			if !exists {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("%w: no unused name for %s in %s", core.ErrFileCreate, fileName, dir)
	default:
		return "", fmt.Errorf("%w: unknown output policy %q", core.ErrFileCreate, policy)
	}
}
