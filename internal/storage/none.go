package storage

import "github.com/geoshape/extension/pkg/core"

// Noop discards every record. It backs the "none" storage type.
type Noop struct{}

func (Noop) Init() error { return nil }

func (Noop) Close() error { return nil }

func (Noop) RecordStep(*core.StepRecord) error { return nil }

func (Noop) RecordInterception(*core.InterceptionRecord) error { return nil }
