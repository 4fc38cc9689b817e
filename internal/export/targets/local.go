package targets

import (
	"context"
	"path/filepath"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/fsutil"
)

// LocalTarget writes the artifact to a file on disk, replacing it atomically
// so overlays polling the file never read a partial document.
type LocalTarget struct {
	path string
}

// NewLocalTarget returns a LocalTarget writing to path.
func NewLocalTarget(path string) (*LocalTarget, error) {
	if path == "" {
		return nil, configError("local", "path is required")
	}
	return &LocalTarget{path: filepath.Clean(path)}, nil
}

// Name implements export.Target.
func (t *LocalTarget) Name() string { return "local" }

// Path returns the file the artifact is written to.
func (t *LocalTarget) Path() string { return t.path }

// Publish implements export.Target.
func (t *LocalTarget) Publish(ctx context.Context, artifact []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(t.path, artifact, fsutil.PermPublic); err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("path", t.path).
			Build()
	}
	return nil
}

// Close implements export.Target.
func (t *LocalTarget) Close() error { return nil }
