package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetWorkflowInputs replaces the stored input set for a template in one
// transaction. Inputs not present in the new set are removed.
func (s *Store) SetWorkflowInputs(ctx context.Context, template string, inputs []WorkflowInput) error {
	if template == "" {
		return errors.New("template is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin workflow inputs tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_inputs WHERE template = ?`, template); err != nil {
		return fmt.Errorf("clear workflow inputs: %w", err)
	}
	updatedAt := s.epochSeconds()
	for _, input := range inputs {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO workflow_inputs (template, node_id, field, value, updated_at) VALUES (?, ?, ?, ?, ?)`,
			template, input.NodeID, input.Field, input.Value, updatedAt,
		); err != nil {
			return fmt.Errorf("insert workflow input %s.%s: %w", input.NodeID, input.Field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit workflow inputs: %w", err)
	}
	return nil
}

// WorkflowInputs returns the stored inputs for a template in stable order.
func (s *Store) WorkflowInputs(ctx context.Context, template string) ([]WorkflowInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT node_id, field, value, updated_at FROM workflow_inputs WHERE template = ? ORDER BY node_id, field`,
		template,
	)
	if err != nil {
		return nil, fmt.Errorf("query workflow inputs: %w", err)
	}
	defer rows.Close()

	var inputs []WorkflowInput
	for rows.Next() {
		var input WorkflowInput
		if err := rows.Scan(&input.NodeID, &input.Field, &input.Value, &input.UpdatedAt); err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, rows.Err()
}

// SetSetting upserts a settings key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("setting key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.epochSeconds(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Setting returns the stored value for a key and whether it exists.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

// Settings returns every stored settings pair.
func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}
