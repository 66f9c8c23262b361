package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type PinConfigSQLite struct {
	db *sql.DB
}

func NewPinConfigSQLite(db *sql.DB) *PinConfigSQLite {
	return &PinConfigSQLite{db: db}
}

const (
	upsertPinConfigSQL = `
		INSERT INTO pin_config (pin, mode, pull)
		VALUES (?, ?, ?)
		ON CONFLICT(pin) DO UPDATE SET
			mode=excluded.mode,
			pull=excluded.pull
	`

	deletePinConfigSQL = `DELETE FROM pin_config WHERE pin=?`

	clearPinConfigSQL = `DELETE FROM pin_config`

	selectPinConfigSQL = `SELECT pin, mode, pull FROM pin_config ORDER BY pin`
)

// Save upserts the configuration row for cfg.Pin.
func (r *PinConfigSQLite) Save(ctx context.Context, cfg PinConfig) error {
	if _, err := r.db.ExecContext(ctx, upsertPinConfigSQL, cfg.Pin, cfg.Mode, cfg.Pull); err != nil {
		return fmt.Errorf("save pin %d config: %w", cfg.Pin, err)
	}
	return nil
}

// Delete removes the configuration row for pin, if any.
func (r *PinConfigSQLite) Delete(ctx context.Context, pin int) error {
	if _, err := r.db.ExecContext(ctx, deletePinConfigSQL, pin); err != nil {
		return fmt.Errorf("delete pin %d config: %w", pin, err)
	}
	return nil
}

// Clear removes every stored configuration.
func (r *PinConfigSQLite) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, clearPinConfigSQL); err != nil {
		return fmt.Errorf("clear pin configs: %w", err)
	}
	return nil
}

// LoadAll returns all stored configurations ordered by pin number.
func (r *PinConfigSQLite) LoadAll(ctx context.Context) ([]PinConfig, error) {
	rows, err := r.db.QueryContext(ctx, selectPinConfigSQL)
	if err != nil {
		return nil, fmt.Errorf("load pin configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var configs []PinConfig
	for rows.Next() {
		var cfg PinConfig
		if err := rows.Scan(&cfg.Pin, &cfg.Mode, &cfg.Pull); err != nil {
			return nil, fmt.Errorf("scan pin config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pin configs: %w", err)
	}
	return configs, nil
}
