// Package filesystem persists release records and incident documents on the
// local disk.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

const timestampLayout = "20060102T150405Z"

// maxSuffix bounds the search for a free file name.
const maxSuffix = 1000

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store writes records and reports below rootDir.
type Store struct {
	rootDir string
}

// NewStore creates the report directory if needed.
func NewStore(rootDir string) (*Store, error) {
	rootDir = expandTilde(rootDir)

	if err := os.MkdirAll(rootDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	return &Store{rootDir: rootDir}, nil
}

// Dir returns the report directory.
func (s *Store) Dir() string {
	return s.rootDir
}

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path[2:])
	}
	return path
}

func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if s == "" {
		return "unnamed"
	}
	return s
}

// FileName returns the deterministic base name of a document: kind, source
// version and UTC timestamp.
func FileName(kind string, from domain.Version, at time.Time, ext string) string {
	return fmt.Sprintf("%s-%s-%s%s", sanitize(kind), sanitize(from.Tag()), at.UTC().Format(timestampLayout), ext)
}

// writeNew creates a file that did not exist before. When the name is taken
// a numeric suffix is added, so earlier documents are never overwritten.
func (s *Store) writeNew(base, ext string, data []byte) (string, error) {
	for i := 1; i <= maxSuffix; i++ {
		name := base + ext
		if i > 1 {
			name = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		path := filepath.Join(s.rootDir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s%s in %s", base, ext, s.rootDir)
}

// WriteReport writes a markdown document named after kind, from and at.
func (s *Store) WriteReport(ctx context.Context, kind string, from domain.Version, at time.Time, content string) (string, error) {
	base := strings.TrimSuffix(FileName(kind, from, at, ".md"), ".md")
	path, err := s.writeNew(base, ".md", []byte(content))
	if err != nil {
		return "", err
	}
	logging.FromCtx(ctx).Info().Str(logging.FieldPath, path).Str("kind", kind).Msg("report written")
	return path, nil
}

// SaveRelease writes rec as YAML.
func (s *Store) SaveRelease(ctx context.Context, rec *domain.ReleaseRecord) (string, error) {
	return s.saveYAML(ctx, "release", rec.Version, rec.StartedAt, rec)
}

// SaveRollback writes rec as YAML.
func (s *Store) SaveRollback(ctx context.Context, rec *domain.RollbackRecord) (string, error) {
	return s.saveYAML(ctx, "rollback", rec.FromVersion, rec.Timestamp, rec)
}

func (s *Store) saveYAML(ctx context.Context, kind string, v domain.Version, at time.Time, rec any) (string, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s record: %w", kind, err)
	}
	base := strings.TrimSuffix(FileName(kind, v, at, ".yaml"), ".yaml")
	path, err := s.writeNew(base, ".yaml", data)
	if err != nil {
		return "", err
	}
	logging.FromCtx(ctx).Debug().Str(logging.FieldPath, path).Msg("record saved")
	return path, nil
}
