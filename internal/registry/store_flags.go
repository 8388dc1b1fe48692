package registry

import (
	"context"
	"fmt"
)

// SetFlag toggles the flag on a registration.
func (s *Store) SetFlag(ctx context.Context, id string, flagged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := 0
	if flagged {
		value = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE registrations SET flagged = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set flag %q: %w", id, ErrNotFound)
	}
	return nil
}

// ToggleFlag inverts the flag on a registration and returns the new value.
func (s *Store) ToggleFlag(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE registrations SET flagged = 1 - flagged WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("toggle flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, fmt.Errorf("toggle flag %q: %w", id, ErrNotFound)
	}

	var flagged int
	if err := s.db.QueryRowContext(ctx, `SELECT flagged FROM registrations WHERE id = ?`, id).Scan(&flagged); err != nil {
		return false, fmt.Errorf("read toggled flag: %w", err)
	}
	return flagged != 0, nil
}

// SetRating stores a rating, clamped into [-1, 1].
func (s *Store) SetRating(ctx context.Context, id string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rating = clampRating(rating)
	res, err := s.db.ExecContext(ctx, `UPDATE registrations SET rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set rating %q: %w", id, ErrNotFound)
	}
	return nil
}

func clampRating(rating int) int {
	if rating > 1 {
		return 1
	}
	if rating < -1 {
		return -1
	}
	return rating
}

// Delete removes a registration by identifier.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteByImagePath removes the registration for an image path, returning
// the removed record so callers can broadcast it.
func (s *Store) DeleteByImagePath(ctx context.Context, imagePath string) (*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.getByImagePath(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, reg.ID); err != nil {
		return nil, fmt.Errorf("delete registration by path: %w", err)
	}
	return reg, nil
}
