package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
)

// DefaultDir is where new migrations are authored.
const DefaultDir = "pkg/migrate/migrations"

// Dialect is the database the SQL files are written for.
const Dialect = "postgres"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migration set: the files compiled into the binary, or
// the files under dir when one is given.
func Source(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embedded, "migrations")
}

// Runner applies goose migrations against one postgres database.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(db *sql.DB, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		return nil, fmt.Errorf("migration source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.logResults(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	if result != nil {
		r.logResults(ctx, result)
	}
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// VersionStatus is one row of Status output.
type VersionStatus struct {
	Version int64
	File    string
	Applied bool
}

func (r *Runner) Status(ctx context.Context) ([]VersionStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]VersionStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, VersionStatus{
			Version: s.Source.Version,
			File:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// To moves the schema up or down to target (YYYYMMDDHHMMSS).
func (r *Runner) To(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == version:
		return nil
	case current < version:
		results, err := r.provider.UpTo(ctx, version)
		r.logResults(ctx, results...)
		if err != nil {
			return fmt.Errorf("goose up-to %d: %w", version, err)
		}
	default:
		results, err := r.provider.DownTo(ctx, version)
		r.logResults(ctx, results...)
		if err != nil {
			return fmt.Errorf("goose down-to %d: %w", version, err)
		}
	}
	return nil
}

func (r *Runner) logResults(ctx context.Context, results ...*goose.MigrationResult) {
	if r.logg == nil {
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}), "migration.applied")
	}
}
