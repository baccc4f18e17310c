// Package sqlitestorage journals into an in-memory SQLite database with
// periodic disk dumps via VACUUM INTO. It wraps the GORM backend; the only
// SQLite-specific concerns are creating the in-memory DB and dumping it.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/geoshape/extension/internal/database"
	"github.com/geoshape/extension/internal/logging"
	gormstorage "github.com/geoshape/extension/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite journal.
type Config struct {
	FlushInterval time.Duration
	DumpInterval  time.Duration
	DumpPath      string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite journal. deps.DB is replaced by the in-memory database.
func New(cfg Config, deps gormstorage.Dependencies) (*Backend, error) {
	db, err := database.OpenSqlite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	deps.DB = db
	deps.FlushInterval = cfg.FlushInterval
	if deps.BackendName == "" {
		deps.BackendName = "sqlite"
	}

	return &Backend{
		Backend:  gormstorage.New(deps),
		db:       db,
		cfg:      cfg,
		log:      deps.LogManager,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}

	return nil
}

// Close stops the dump goroutine, flushes the GORM backend and writes a final dump.
func (b *Backend) Close() error {
	close(b.stopChan)
	<-b.done

	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes the current journal to the configured path.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.writeLog("sqlite:dump", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.writeLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			}
		}
	}
}

func (b *Backend) writeLog(functionName, data, level string) {
	if b.log != nil {
		b.log.WriteLog(functionName, data, level)
	}
}
