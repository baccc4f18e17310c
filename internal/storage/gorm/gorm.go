// Package gormstorage journals navigation steps through GORM. Records are
// converted on arrival, queued, and written in batches by a background writer.
package gormstorage

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geoshape/extension/internal/database"
	"github.com/geoshape/extension/internal/logging"
	"github.com/geoshape/extension/internal/model"
	"github.com/geoshape/extension/internal/model/convert"
	"github.com/geoshape/extension/internal/queue"
	"github.com/geoshape/extension/pkg/core"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is not positive.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM journal backend.
type Dependencies struct {
	// DB may be nil, in which case records stay queued.
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration

	// Session row fields
	BackendName      string
	ExtensionVersion string
	Settings         any
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Steps         *queue.Queue[model.Step]
	Interceptions *queue.Queue[model.Interception]
}

func newQueues() *queues {
	return &queues{
		Steps:         queue.New[model.Step](),
		Interceptions: queue.New[model.Interception](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

// New creates a new GORM journal backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, migrates the schema, opens a session and
// starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}

	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	settings, err := json.Marshal(b.deps.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode session settings: %w", err)
	}
	session := model.Session{
		StartTime:        time.Now(),
		ExtensionVersion: b.deps.ExtensionVersion,
		Backend:          b.deps.BackendName,
		Settings:         datatypes.JSON(settings),
	}
	if err := b.deps.DB.Create(&session).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}
	b.sessionID.Store(uint64(session.ID))
	b.log("Init", fmt.Sprintf("Journal session %d started", session.ID), "INFO")

	go b.writeLoop()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.closeOnce.Do(func() { close(b.stopChan) })
	<-b.done
	return nil
}

// SessionID returns the journal session opened by Init, 0 without a DB.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// Pending returns the number of queued steps and interceptions.
func (b *Backend) Pending() (steps, interceptions int) {
	return b.queues.Steps.Len(), b.queues.Interceptions.Len()
}

// RecordStep converts and queues a step.
func (b *Backend) RecordStep(s *core.StepRecord) error {
	b.queues.Steps.Push(convert.CoreToStep(*s, b.SessionID()))
	return nil
}

// RecordInterception converts and queues a predicted rendezvous.
func (b *Backend) RecordInterception(i *core.InterceptionRecord) error {
	b.queues.Interceptions.Push(convert.CoreToInterception(*i, b.SessionID()))
	return nil
}

// Flush writes every queued record now.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := writeQueue(b.deps.DB, b.queues.Steps, "steps"); err != nil {
		return err
	}
	return writeQueue(b.deps.DB, b.queues.Interceptions, "interceptions")
}

func (b *Backend) writeLoop() {
	defer close(b.done)

	interval := b.deps.FlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if err := b.Flush(); err != nil {
				b.log(":DB:WRITER:", fmt.Sprintf("Final flush failed: %v", err), "ERROR")
			}
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log(":DB:WRITER:", err.Error(), "ERROR")
			}
		}
	}
}

func (b *Backend) log(functionName, data, level string) {
	if b.deps.LogManager != nil {
		b.deps.LogManager.WriteLog(functionName, data, level)
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// A failed batch goes back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	if q.Empty() {
		return nil
	}
	items := q.GetAndEmpty()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&items, 1000).Error
	})
	if err != nil {
		q.PushFront(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	return nil
}
