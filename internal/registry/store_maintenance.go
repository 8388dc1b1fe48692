package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pictor/internal/logging"
)

// CleanupOrphans removes registrations whose image files no longer exist
// under the artifact root. Stored paths may be absolute (local detection)
// or relative to the root (remote listings); relative paths are resolved
// against root before the existence check. With dryRun set it reports what
// would be removed without touching rows.
func (s *Store) CleanupOrphans(ctx context.Context, root string, dryRun bool) (CleanupReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, image_path FROM registrations`)
	if err != nil {
		return CleanupReport{}, fmt.Errorf("query registrations: %w", err)
	}

	var orphaned []string
	for rows.Next() {
		var id, imagePath string
		if err := rows.Scan(&id, &imagePath); err != nil {
			rows.Close()
			return CleanupReport{}, err
		}
		resolved := imagePath
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(root, resolved)
		}
		if _, statErr := os.Stat(resolved); errors.Is(statErr, os.ErrNotExist) {
			orphaned = append(orphaned, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return CleanupReport{}, err
	}
	rows.Close()

	report := CleanupReport{Orphaned: orphaned, DryRun: dryRun}
	if dryRun || len(orphaned) == 0 {
		return report, nil
	}

	args := make([]any, len(orphaned))
	for i, id := range orphaned {
		args[i] = id
	}
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM registrations WHERE id IN (`+makePlaceholders(len(orphaned))+`)`,
		args...,
	)
	if err != nil {
		return report, fmt.Errorf("delete orphans: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return report, fmt.Errorf("rows affected: %w", err)
	}
	report.Deleted = int(deleted)
	s.logger.Info("orphan cleanup removed registrations",
		logging.Int(logging.FieldCount, report.Deleted),
	)
	return report, nil
}

// CheckHealth returns diagnostic information about the registration database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("registration database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat registration database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("registration database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("registration database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping registration database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'registrations'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(registrations)")
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("table info: %w", err)
		}
		defer colsRows.Close()

		var columns []string
		for colsRows.Next() {
			var (
				cid     int
				name    string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("scan table info: %w", err)
			}
			columns = append(columns, name)
		}
		if err := colsRows.Err(); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("iterate table info: %w", err)
		}
		health.ColumnsPresent = append(health.ColumnsPresent, columns...)

		expected := []string{"id", "image_path", "char_str", "source", "created_at", "flagged", "rating", "data"}
		missingMap := make(map[string]struct{}, len(expected))
		for _, col := range expected {
			missingMap[col] = struct{}{}
		}
		for _, col := range columns {
			delete(missingMap, col)
		}
		for col := range missingMap {
			health.MissingColumns = append(health.MissingColumns, col)
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM registrations")
		if err := row.Scan(&health.TotalRows); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count registrations: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
