package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// JournalExport is the root JSON structure
type JournalExport struct {
	StartTime string       `json:"startTime"`
	EndTime   string       `json:"endTime"`
	Entities  []EntityJSON `json:"entities"`
}

// EntityJSON is the journal of one entity.
type EntityJSON struct {
	ID uint32 `json:"id"`
	// Steps: [secondsSinceStart, [x, y], [headingX, headingY], mode, distanceKm, remainingKm, arrived]
	Steps [][]any `json:"steps"`
	// Interceptions: [secondsSinceStart, goal, [x, y], hours, iterations]
	Interceptions [][]any `json:"interceptions"`
	TotalKm       float64 `json:"totalKm"`
}

// exportJSON writes the journal to a JSON file, gzipped when configured
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.startTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("journal_%s.json.gz", timestamp)
	} else {
		filename = fmt.Sprintf("journal_%s.json", timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() JournalExport {
	export := JournalExport{
		StartTime: b.startTime.UTC().Format(time.RFC3339),
		EndTime:   b.now().UTC().Format(time.RFC3339),
		Entities:  make([]EntityJSON, 0, len(b.entities)),
	}

	for _, record := range b.entities {
		entity := EntityJSON{
			ID:            record.Entity,
			Steps:         make([][]any, 0, len(record.Steps)),
			Interceptions: make([][]any, 0, len(record.Interceptions)),
		}

		for _, s := range record.Steps {
			entity.Steps = append(entity.Steps, []any{
				s.Time.Sub(b.startTime).Seconds(),
				[]float64{s.Position.X, s.Position.Y},
				[]float64{s.HeadingX, s.HeadingY},
				s.Mode,
				s.DistanceKm,
				s.RemainingKm,
				boolToInt(s.Arrived),
			})
			entity.TotalKm += s.DistanceKm
		}

		for _, i := range record.Interceptions {
			entity.Interceptions = append(entity.Interceptions, []any{
				i.Time.Sub(b.startTime).Seconds(),
				i.Goal,
				[]float64{i.Point.X, i.Point.Y},
				i.Hours,
				i.Iterations,
			})
		}

		export.Entities = append(export.Entities, entity)
	}

	sort.Slice(export.Entities, func(i, j int) bool {
		return export.Entities[i].ID < export.Entities[j].ID
	})
	return export
}

func writeJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
