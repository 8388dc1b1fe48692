package registry

import (
	"context"
	"fmt"
)

// GetAll returns registrations ordered newest first plus the total count.
// A limit of zero or less returns every row; offset skips rows from the top.
func (s *Store) GetAll(ctx context.Context, limit, offset int) ([]*Registration, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM registrations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+registrationColumns+` FROM registrations
         ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []*Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	return regs, total, rows.Err()
}

// Flagged returns every flagged registration, newest first.
func (s *Store) Flagged(ctx context.Context) ([]*Registration, error) {
	return s.where(ctx, `flagged != 0`)
}

// Rated returns registrations with exactly the given rating, newest first.
func (s *Store) Rated(ctx context.Context, rating int) ([]*Registration, error) {
	return s.where(ctx, `rating = ?`, clampRating(rating))
}

func (s *Store) where(ctx context.Context, clause string, args ...any) ([]*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE `+clause+` ORDER BY created_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	var regs []*Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// Stats returns aggregate registration counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{BySource: make(map[string]int)}
	row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(1),
        COALESCE(SUM(CASE WHEN flagged != 0 THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN rating != 0 THEN 1 ELSE 0 END), 0)
        FROM registrations`)
	if err := row.Scan(&stats.Total, &stats.Flagged, &stats.Rated); err != nil {
		return Stats{}, fmt.Errorf("registration stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(source, ''), COUNT(1) FROM registrations GROUP BY source`)
	if err != nil {
		return Stats{}, fmt.Errorf("stats by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return Stats{}, err
		}
		stats.BySource[source] = count
	}
	return stats, rows.Err()
}
