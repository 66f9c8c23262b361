package repository

import (
	"context"
	"database/sql"
)

// PinConfig is the persisted configuration of one pin, restored at startup
// so a server restart does not lose the operator's setup.
type PinConfig struct {
	Pin  int    `json:"pin"`
	Mode string `json:"mode"` // input | output
	Pull string `json:"pull"` // off | up | down
}

// PinConfigRepo stores pin configurations keyed by pin number.
type PinConfigRepo interface {
	Save(ctx context.Context, cfg PinConfig) error
	Delete(ctx context.Context, pin int) error
	Clear(ctx context.Context) error
	LoadAll(ctx context.Context) ([]PinConfig, error)
}

type Repository struct {
	PinConfigs PinConfigRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		PinConfigs: NewPinConfigSQLite(db),
	}
}
