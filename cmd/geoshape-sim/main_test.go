package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/geoshape/extension/internal/config"
	"github.com/geoshape/extension/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Scenario(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")

	cfg := fmt.Sprintf(`{"logsDir": %q, "storage": {"type": "memory", "memory": {"outputDir": %q, "compressOutput": false}}}`,
		logsDir, filepath.Join(dir, "journals"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))

	scenarioPath := filepath.Join(dir, "chase.json")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`{
		"tick": "1m",
		"duration": "1h",
		"entities": [
			{"id": 1, "lat": 0, "lon": 0, "speedKph": 600, "goal": 2, "canMove": true},
			{"id": 2, "lat": 0, "lon": 1}
		]
	}`), 0644))

	require.NoError(t, run(context.Background(), scenarioPath, dir, "", "accelerated", 1, false))

	assert.FileExists(t, filepath.Join(logsDir, "geoshape-sim.log"))
	journals, err := filepath.Glob(filepath.Join(dir, "journals", "journal_*.json"))
	require.NoError(t, err)
	assert.Len(t, journals, 1)
}

func TestRun_Errors(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	viper.Set("logsDir", filepath.Join(dir, "logs"))

	err := run(context.Background(), filepath.Join(dir, "none.json"), "", "", "accelerated", 1, false)
	assert.ErrorContains(t, err, "opening scenario")

	err = run(context.Background(), filepath.Join(dir, "none.json"), "", "", "warp", 1, false)
	assert.ErrorContains(t, err, "unknown clock mode")
}

func TestNewLogger(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "sim.log")

	logger := newLogger(&console, file, false)
	logger.Info().Int("entity", 3).Msg("Entity arrived")
	logger.Debug().Msg("hidden")

	assert.Contains(t, console.String(), "Entity arrived")
	assert.NotContains(t, console.String(), "hidden")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entity":3`)
}

func TestMetricsMux(t *testing.T) {
	metrics, err := observability.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	mux := metricsMux(metrics)

	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "navigation_distance_km_total",
	} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Body.String(), want, path)
	}
}
