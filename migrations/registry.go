package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/uptrace/bun/dialect"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
	DialectMSSQL    = "mssql"
)

// FilesystemSpec is a directory of *.up.sql / *.down.sql files for one
// dialect.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		trimmed := strings.TrimSpace(label)
		if trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets restricts registration to the given dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if len(targets) == 0 {
			return
		}
		next := make([]string, 0, len(targets))
		for _, target := range targets {
			trimmed := strings.TrimSpace(strings.ToLower(target))
			if trimmed == "" {
				continue
			}
			next = append(next, trimmed)
		}
		if len(next) == 0 {
			return
		}
		r.ValidationTargets = dedupe(next)
	}
}

func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		if len(filesystems) == 0 {
			return
		}
		copied := make([]FilesystemSpec, 0, len(filesystems))
		for _, fsys := range filesystems {
			dialect := strings.TrimSpace(strings.ToLower(fsys.Dialect))
			if dialect == "" || fsys.FS == nil {
				continue
			}
			copied = append(copied, FilesystemSpec{
				Dialect: dialect,
				Path:    fsys.Path,
				FS:      fsys.FS,
			})
		}
		if len(copied) == 0 {
			return
		}
		r.Filesystems = append(r.Filesystems, copied...)
	}
}

// DialectFor maps a bun dialect to the dialect label used by filesystems.
func DialectFor(name dialect.Name) string {
	switch name {
	case dialect.PG:
		return DialectPostgres
	case dialect.SQLite:
		return DialectSQLite
	case dialect.MySQL:
		return DialectMySQL
	case dialect.MSSQL:
		return DialectMSSQL
	default:
		return strings.ToLower(name.String())
	}
}

// Filesystems splits root by dialect. SQL files at the root are postgres;
// sqlite, mysql and mssql files live in subdirectories of the same name.
func Filesystems(root fs.FS) ([]FilesystemSpec, error) {
	if root == nil {
		return nil, fmt.Errorf("migrations: root filesystem is required")
	}

	filesystems := make([]FilesystemSpec, 0, 4)
	if hasUpMigrations(root) {
		filesystems = append(filesystems, FilesystemSpec{
			Dialect: DialectPostgres,
			Path:    ".",
			FS:      root,
		})
	}
	for _, name := range []string{DialectSQLite, DialectMySQL, DialectMSSQL} {
		info, err := fs.Stat(root, name)
		if err != nil || !info.IsDir() {
			continue
		}
		sub, err := fs.Sub(root, name)
		if err != nil {
			return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", name, err)
		}
		if !hasUpMigrations(sub) {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", name, name)
		}
		filesystems = append(filesystems, FilesystemSpec{
			Dialect: name,
			Path:    name,
			FS:      sub,
		})
	}

	if len(filesystems) == 0 {
		return nil, fmt.Errorf("migrations: no *.up.sql files found")
	}
	return filesystems, nil
}

// Register calls registerFn for every filesystem whose dialect is a
// validation target.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       "go-shelf",
		ValidationTargets: []string{DialectPostgres, DialectSQLite, DialectMySQL, DialectMSSQL},
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&reg)
	}

	if len(reg.ValidationTargets) == 0 {
		return reg, fmt.Errorf("migrations: validation targets are required")
	}
	if strings.TrimSpace(reg.SourceLabel) == "" {
		return reg, fmt.Errorf("migrations: source label is required")
	}
	if len(reg.Filesystems) == 0 {
		return reg, fmt.Errorf("migrations: filesystems are required")
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	targets := dedupe(reg.ValidationTargets)
	for _, fsys := range reg.Filesystems {
		if !slices.Contains(targets, fsys.Dialect) {
			continue
		}
		if fsys.FS == nil {
			return reg, fmt.Errorf("migrations: filesystem for %s is nil", fsys.Dialect)
		}
		if err := registerFn(ctx, fsys.Dialect, reg.SourceLabel, fsys.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", fsys.Dialect, fsys.Path, err)
		}
	}

	return reg, nil
}

func hasUpMigrations(fsys fs.FS) bool {
	matches, err := fs.Glob(fsys, "*.up.sql")
	return err == nil && len(matches) > 0
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(strings.ToLower(value))
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
