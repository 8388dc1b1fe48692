package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pictor/internal/config"
	"pictor/internal/hooks"
	"pictor/internal/logging"
)

// Store manages registration persistence backed by SQLite. A single mutex
// serializes every operation so concurrent callers observe a consistent
// order of inserts and updates.
type Store struct {
	db      *sql.DB
	path    string
	mu      sync.Mutex
	extract *hooks.Registry
	logger  *slog.Logger
	now     func() time.Time
}

// Open initializes or connects to the registration database and applies migrations.
func Open(cfg *config.Config, extractors *hooks.Registry, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if extractors == nil {
		extractors = hooks.NewDefaultRegistry(logger)
	}
	store := &Store{
		db:      db,
		path:    dbPath,
		extract: extractors,
		logger:  logging.NewComponentLogger(logger, "registry"),
		now:     time.Now,
	}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Register records an image, running the extraction chain when the image's
// directory is reachable. Explicit values in extra win over extracted ones;
// the reserved keys "id" and "char_str" set the row's identifier and label
// instead of landing in the data blob.
// Registering an already-known path is not an error: it returns (nil, nil)
// so callers know no new record was created and skip event fan-out.
func (s *Store) Register(ctx context.Context, imagePath, source string, extra map[string]string) (*Registration, error) {
	if strings.TrimSpace(imagePath) == "" {
		return nil, errors.New("image path is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string]string)
	if dirExists(filepath.Dir(imagePath)) {
		req := hooks.Request{
			ImagePath:      imagePath,
			Source:         source,
			GenerationType: extra["generation_type"],
		}
		fields = s.extract.Run(ctx, req)
	} else {
		s.logger.Debug("image directory missing; extraction skipped",
			logging.String(logging.FieldImagePath, imagePath),
		)
	}
	for key, value := range extra {
		if value != "" {
			fields[key] = value
		}
	}

	charStr := fields[KeyCharStr]
	delete(fields, KeyCharStr)

	now := s.now()
	id := fields[KeyID]
	delete(fields, KeyID)
	if id == "" {
		id = deriveID(imagePath, now)
	}
	createdAt := epochSecondsAt(now)

	dataJSON, err := marshalData(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal registration data: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO registrations (
            id, image_path, char_str, source, created_at, flagged, rating, data
        ) VALUES (?, ?, ?, ?, ?, 0, 0, ?)`,
		id,
		imagePath,
		nullableString(charStr),
		nullableString(source),
		createdAt,
		dataJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.getByImagePath(ctx, imagePath)
}

// Get fetches a registration by identifier, returning (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// GetByImagePath fetches a registration by image path, returning (nil, nil) when absent.
func (s *Store) GetByImagePath(ctx context.Context, imagePath string) (*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getByImagePath(ctx, imagePath)
}

func (s *Store) getByImagePath(ctx context.Context, imagePath string) (*Registration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE image_path = ?`, imagePath)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get registration by path: %w", err)
	}
	return reg, nil
}

// deriveID builds a registration identifier. Conduit output folders carry a
// meaningful name, so images under a conduit directory reuse the folder
// name; everything else gets a timestamped identifier with a short random
// suffix to keep concurrent registrations distinct.
func deriveID(imagePath string, now time.Time) string {
	parts := strings.Split(filepath.ToSlash(imagePath), "/")
	for _, part := range parts[:max(len(parts)-1, 0)] {
		if part == "conduit" {
			if folder := parts[len(parts)-2]; folder != "conduit" {
				return folder
			}
			break
		}
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("%d_%s", now.Unix(), suffix)
}

// epochSecondsAt converts a wall-clock time into the REAL column format
// used for all stored timestamps.
func epochSecondsAt(now time.Time) float64 {
	return float64(now.UnixNano()) / float64(time.Second)
}

func (s *Store) epochSeconds() float64 {
	return epochSecondsAt(s.now())
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func marshalData(fields map[string]string) (any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

const registrationColumns = "id, image_path, char_str, source, created_at, flagged, rating, data"

func scanRegistration(scanner interface{ Scan(dest ...any) error }) (*Registration, error) {
	var (
		id        string
		imagePath string
		charStr   sql.NullString
		source    sql.NullString
		createdAt sql.NullFloat64
		flagged   sql.NullInt64
		rating    sql.NullInt64
		dataRaw   sql.NullString
	)

	if err := scanner.Scan(&id, &imagePath, &charStr, &source, &createdAt, &flagged, &rating, &dataRaw); err != nil {
		return nil, err
	}

	reg := &Registration{
		ID:        id,
		ImagePath: imagePath,
		CharStr:   charStr.String,
		Source:    source.String,
		CreatedAt: createdAt.Float64,
		Flagged:   flagged.Valid && flagged.Int64 != 0,
		Rating:    int(rating.Int64),
		Data:      map[string]string{},
	}
	if dataRaw.Valid && dataRaw.String != "" {
		if err := json.Unmarshal([]byte(dataRaw.String), &reg.Data); err != nil {
			return nil, fmt.Errorf("decode registration data: %w", err)
		}
	}
	return reg, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
