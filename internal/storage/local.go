package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/domain"
)

// Store is a local filesystem blob store rooted at a single configurable
// directory. All paths handed to it are relative placement paths.
type Store struct {
	root   string
	logger zerolog.Logger
}

// NewStore creates a Store rooted at root, creating the directory if needed.
func NewStore(root string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating storage root %s: %v", domain.ErrIO, root, err)
	}

	return &Store{
		root:   root,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Root returns the absolute storage root directory.
func (s *Store) Root() string {
	return s.root
}

// AbsPath resolves a relative placement path against the storage root.
// Absolute paths (entries indexed in place, outside the store) pass through
// unchanged.
func (s *Store) AbsPath(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(s.root, relPath)
}

// CopyIn copies the file at srcPath into the store at relPath, creating any
// missing parent directories. The bytes land in a temp file first and are
// renamed into place, so a reader of relPath only ever sees a complete blob.
// Rewriting the same placement path with identical bytes is idempotent.
func (s *Store) CopyIn(srcPath, relPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return domain.NewDomainError(domain.ErrFileNotFound, "cannot open source file", srcPath)
		case os.IsPermission(err):
			return domain.NewDomainError(domain.ErrPermissionDenied, "cannot read source file", srcPath)
		default:
			return fmt.Errorf("%w: opening %s: %v", domain.ErrIO, srcPath, err)
		}
	}
	defer src.Close()

	dstPath := s.AbsPath(relPath)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("%w: creating blob directory: %v", domain.ErrIO, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".copyin-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp blob for %s: %v", domain.ErrIO, relPath, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: writing blob %s: %v", domain.ErrIO, relPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: syncing blob %s: %v", domain.ErrIO, relPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: closing blob %s: %v", domain.ErrIO, relPath, err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: setting blob mode %s: %v", domain.ErrIO, relPath, err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: placing blob %s: %v", domain.ErrIO, relPath, err)
	}

	s.logger.Debug().Str("src", srcPath).Str("blob", relPath).Msg("blob copied into store")
	return nil
}

// Open opens a stored blob for reading.
func (s *Store) Open(relPath string) (io.ReadCloser, error) {
	f, err := os.Open(s.AbsPath(relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewDomainError(domain.ErrBlobNotFound, "blob missing from store", relPath)
		}
		return nil, fmt.Errorf("%w: opening blob %s: %v", domain.ErrIO, relPath, err)
	}
	return f, nil
}

// Exists reports whether a blob is present at relPath.
func (s *Store) Exists(relPath string) (bool, error) {
	_, err := os.Stat(s.AbsPath(relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat blob %s: %v", domain.ErrIO, relPath, err)
	}
	return true, nil
}

// Remove deletes a blob. Removing an absent blob returns
// domain.ErrBlobNotFound.
func (s *Store) Remove(relPath string) error {
	err := os.Remove(s.AbsPath(relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewDomainError(domain.ErrBlobNotFound, "blob missing from store", relPath)
		}
		return fmt.Errorf("%w: removing blob %s: %v", domain.ErrIO, relPath, err)
	}
	return nil
}

// Walk visits every blob file under the media tree, passing its relative
// placement path and file info. Used by the orphan scan.
func (s *Store) Walk(fn func(relPath string, info fs.FileInfo) error) error {
	mediaRoot := filepath.Join(s.root, mediaDir)
	err := filepath.Walk(mediaRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil // empty store
			}
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		return fn(rel, info)
	})
	if err != nil {
		return fmt.Errorf("%w: walking store: %v", domain.ErrIO, err)
	}
	return nil
}
