package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/google/uuid"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Store saves uploaded blobs on the local filesystem and serves them under a
// public URL prefix.
type Store struct {
	dir    string
	prefix string
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates the upload directory when missing.
func New(cfg config.UploadsConfig) (*Store, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, errors.New("uploads dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(cfg.PublicPrefix), "/")
	return &Store{dir: dir, prefix: prefix}, nil
}

// Dir returns the directory blobs are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Prefix returns the public URL prefix blobs are served under.
func (s *Store) Prefix() string {
	return s.prefix
}

// Save writes data under a unique name derived from suggestedName and returns
// its public URL.
func (s *Store) Save(ctx context.Context, data []byte, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uuid.NewString() + "_" + sanitizeName(suggestedName)
	full := filepath.Join(s.dir, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %q: %w", name, err)
	}
	return path.Join(s.prefix, name), nil
}

// Delete removes the blob behind url. Missing blobs are not an error.
func (s *Store) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := strings.TrimPrefix(url, s.prefix+"/")
	if name == url || name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("url %q is not managed by this store", url)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %q: %w", name, err)
	}
	return nil
}

// Ping checks the upload directory is still writable.
func (s *Store) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "upload"
	}
	if len(base) > 80 {
		base = base[len(base)-80:]
	}
	return base
}
