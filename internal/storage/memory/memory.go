// Package memory keeps the movement journal in memory and exports it as JSON on close.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/geoshape/extension/internal/config"
	"github.com/geoshape/extension/pkg/core"
)

// EntityRecord groups the journal of one entity
type EntityRecord struct {
	Entity        uint32
	Steps         []core.StepRecord
	Interceptions []core.InterceptionRecord
}

// Backend stores journal records in memory and exports to JSON
type Backend struct {
	cfg       config.MemoryConfig
	startTime time.Time
	now       func() time.Time

	entities map[uint32]*EntityRecord

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		now:      time.Now,
		entities: make(map[uint32]*EntityRecord),
	}
}

// Init starts a new journal, dropping anything recorded before.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.startTime = b.now()
	b.entities = make(map[uint32]*EntityRecord)
	b.idCounter = 0
	return nil
}

// Close exports the journal. Nothing is written when no output directory is configured.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

func (b *Backend) entity(id uint32) *EntityRecord {
	record, ok := b.entities[id]
	if !ok {
		record = &EntityRecord{Entity: id}
		b.entities[id] = record
	}
	return record
}

// RecordStep appends a step to its entity's journal and assigns its ID.
func (b *Backend) RecordStep(s *core.StepRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter

	record := b.entity(s.Entity)
	record.Steps = append(record.Steps, *s)
	return nil
}

// RecordInterception appends a predicted rendezvous to its pursuer's journal and assigns its ID.
func (b *Backend) RecordInterception(i *core.InterceptionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	i.ID = b.idCounter

	record := b.entity(i.Entity)
	record.Interceptions = append(record.Interceptions, *i)
	return nil
}

// Entity returns a copy of the journal of one entity.
func (b *Backend) Entity(id uint32) (EntityRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.entities[id]
	if !ok {
		return EntityRecord{}, false
	}
	return EntityRecord{
		Entity:        record.Entity,
		Steps:         append([]core.StepRecord(nil), record.Steps...),
		Interceptions: append([]core.InterceptionRecord(nil), record.Interceptions...),
	}, true
}

// Entities returns the ids of every journaled entity in ascending order.
func (b *Backend) Entities() []uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uint32, 0, len(b.entities))
	for id := range b.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ExportedFilePath returns the path of the last export, empty before the first one.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
