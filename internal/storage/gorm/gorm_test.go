package gormstorage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/geoshape/extension/internal/database"
	"github.com/geoshape/extension/internal/logging"
	"github.com/geoshape/extension/internal/model"
	"github.com/geoshape/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSqliteBackend(t *testing.T, interval time.Duration) (*Backend, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)

	b := New(Dependencies{
		DB:               db,
		LogManager:       logging.NewSlogManager(),
		FlushInterval:    interval,
		BackendName:      "sqlite",
		ExtensionVersion: "1.2.3",
		Settings:         map[string]any{"radiusKm": 6371.0},
	})
	require.NoError(t, b.Init())
	return b, db
}

func testStep(entity uint32) *core.StepRecord {
	return &core.StepRecord{
		Time:        time.Now(),
		Entity:      entity,
		Goal:        2,
		Mode:        "direct",
		Elapsed:     time.Minute,
		Position:    core.Position2D{X: 905, Y: 464},
		Latitude:    0,
		Longitude:   1.5,
		HeadingX:    1,
		DistanceKm:  10,
		RemainingKm: 5,
	}
}

func TestInitClose_WithoutDB(t *testing.T) {
	b := New(Dependencies{})

	require.NoError(t, b.Init())
	require.NotNil(t, b.queues)

	require.NoError(t, b.RecordStep(testStep(1)))
	steps, interceptions := b.Pending()
	assert.Equal(t, 1, steps)
	assert.Equal(t, 0, interceptions)
	assert.NoError(t, b.Flush())
	assert.Equal(t, uint(0), b.SessionID())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "close is idempotent")
}

func TestClose_BeforeInit(t *testing.T) {
	assert.NoError(t, New(Dependencies{}).Close())
}

func TestInit_CreatesSession(t *testing.T) {
	b, db := newSqliteBackend(t, time.Hour)
	defer b.Close()

	require.NotZero(t, b.SessionID())

	var session model.Session
	require.NoError(t, db.First(&session, b.SessionID()).Error)
	assert.Equal(t, "1.2.3", session.ExtensionVersion)
	assert.Equal(t, "sqlite", session.Backend)

	var settings map[string]any
	require.NoError(t, json.Unmarshal(session.Settings, &settings))
	assert.Equal(t, 6371.0, settings["radiusKm"])
}

func TestFlush_WritesQueuedRecords(t *testing.T) {
	b, db := newSqliteBackend(t, time.Hour)
	defer b.Close()

	require.NoError(t, b.RecordStep(testStep(1)))
	require.NoError(t, b.RecordStep(testStep(2)))
	require.NoError(t, b.RecordInterception(&core.InterceptionRecord{
		Time:       time.Now(),
		Entity:     1,
		Goal:       2,
		Longitude:  3,
		Hours:      0.25,
		Iterations: 9,
	}))

	require.NoError(t, b.Flush())

	steps, interceptions := b.Pending()
	assert.Zero(t, steps)
	assert.Zero(t, interceptions)

	var rows []model.Step
	require.NoError(t, db.Order("entity").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, uint32(1), rows[0].Entity)
	assert.Equal(t, b.SessionID(), rows[0].SessionID)
	assert.Equal(t, 60.0, rows[0].ElapsedSeconds)
	assert.Equal(t, 905.0, rows[0].ProjectedX)
	xy, ok := rows[0].Position.XY()
	require.True(t, ok)
	assert.InDelta(t, 166979.2, xy.X, 1.0)

	var caught []model.Interception
	require.NoError(t, db.Find(&caught).Error)
	require.Len(t, caught, 1)
	assert.Equal(t, 9, caught[0].Iterations)
	assert.Equal(t, 0.25, caught[0].Hours)
}

func TestClose_FlushesPendingRecords(t *testing.T) {
	b, db := newSqliteBackend(t, time.Hour)

	require.NoError(t, b.RecordStep(testStep(1)))
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.Step{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWriteLoop_FlushesPeriodically(t *testing.T) {
	b, db := newSqliteBackend(t, 10*time.Millisecond)
	defer b.Close()

	require.NoError(t, b.RecordStep(testStep(1)))

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.Step{}).Count(&count)
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFlush_RequeuesFailedBatch(t *testing.T) {
	b, db := newSqliteBackend(t, time.Hour)
	defer b.Close()

	require.NoError(t, db.Migrator().DropTable(&model.Step{}))
	require.NoError(t, b.RecordStep(testStep(1)))

	err := b.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating steps")

	steps, _ := b.Pending()
	assert.Equal(t, 1, steps)

	require.NoError(t, db.AutoMigrate(&model.Step{}))
	require.NoError(t, b.Flush())
	steps, _ = b.Pending()
	assert.Zero(t, steps)
}
