// Package postgres journals into PostgreSQL/PostGIS through the GORM backend.
package postgres

import (
	"fmt"

	"github.com/geoshape/extension/internal/config"
	"github.com/geoshape/extension/internal/database"
	gormstorage "github.com/geoshape/extension/internal/storage/gorm"
)

// Backend wraps the GORM backend with a Postgres connection opened on Init.
type Backend struct {
	*gormstorage.Backend
	cfg  config.DBConfig
	deps gormstorage.Dependencies
}

// New creates a Postgres journal. Nothing connects until Init.
func New(cfg config.DBConfig, deps gormstorage.Dependencies) *Backend {
	if deps.BackendName == "" {
		deps.BackendName = "postgres"
	}
	return &Backend{cfg: cfg, deps: deps}
}

// Init connects to Postgres unless a DB was injected, then initializes the GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.cfg)
		if err != nil {
			return err
		}
		b.deps.DB = db
		b.writeLog("Init", fmt.Sprintf("Connected to Postgres at %s:%s", b.cfg.Host, b.cfg.Port), "INFO")
	}

	b.Backend = gormstorage.New(b.deps)
	return b.Backend.Init()
}

// Close closes the GORM backend. It is a no-op when Init never ran.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}

func (b *Backend) writeLog(functionName, data, level string) {
	if b.deps.LogManager != nil {
		b.deps.LogManager.WriteLog(functionName, data, level)
	}
}
