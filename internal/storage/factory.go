package storage

import (
	"fmt"
	"log/slog"

	"github.com/geoshape/extension/internal/config"
	"github.com/geoshape/extension/internal/logging"
	gormstorage "github.com/geoshape/extension/internal/storage/gorm"
	"github.com/geoshape/extension/internal/storage/memory"
	"github.com/geoshape/extension/internal/storage/postgres"
	sqlitestorage "github.com/geoshape/extension/internal/storage/sqlite"
	"github.com/geoshape/extension/internal/storage/websocket"
)

// Options carries what the database and stream backends record about the session.
type Options struct {
	LogManager       *logging.SlogManager
	ExtensionName    string
	ExtensionVersion string
	Settings         any
}

// NewBackend creates a journal backend based on configuration
func NewBackend(cfg config.StorageConfig, db config.DBConfig, opts Options) (Backend, error) {
	deps := gormstorage.Dependencies{
		LogManager:       opts.LogManager,
		FlushInterval:    cfg.FlushInterval,
		BackendName:      cfg.Type,
		ExtensionVersion: opts.ExtensionVersion,
		Settings:         opts.Settings,
	}

	switch cfg.Type {
	case "postgres":
		return postgres.New(db, deps), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			FlushInterval: cfg.FlushInterval,
			DumpInterval:  cfg.SQLite.DumpInterval,
			DumpPath:      cfg.SQLite.Path,
		}, deps)
	case "memory":
		return memory.New(cfg.Memory), nil
	case "websocket":
		var logger *slog.Logger
		if opts.LogManager != nil {
			logger = opts.LogManager.Logger()
		}
		return websocket.New(websocket.Config{
			URL:       cfg.WebSocket.URL,
			Secret:    cfg.WebSocket.Secret,
			Extension: opts.ExtensionName,
			Version:   opts.ExtensionVersion,
			Logger:    logger,
		}), nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
