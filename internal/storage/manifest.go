package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"reviewetl/internal/validator"
)

// Manifest records what a run produced next to the combined CSV: row
// accounting from validation plus a content hash of the published file, so
// a later run (or the S3 backup) can tell whether the table changed.
type Manifest struct {
	RunID       string         `json:"run_id"`
	CreatedAt   time.Time      `json:"created_at"`
	SourceFile  string         `json:"source_file"`
	SHA256      string         `json:"sha256"`
	RowsIn      int            `json:"rows_in"`
	RowsOut     int            `json:"rows_out"`
	Dropped     map[string]int `json:"dropped"`
	Coerced     map[string]int `json:"coerced"`
	DropRatio   float64        `json:"drop_ratio"`
	DriftFlag   bool           `json:"drift_flag"`
	EnrichedRun bool           `json:"enriched"`
}

// NewManifest builds a manifest for the combined CSV at csvPath using the
// validation report.
func NewManifest(csvPath string, report *validator.Report, enriched bool) (*Manifest, error) {
	hash, err := hashFile(csvPath)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		RunID:       uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		SourceFile:  csvPath,
		SHA256:      hash,
		RowsIn:      report.RowsIn,
		RowsOut:     report.RowsOut,
		Dropped:     report.Dropped,
		Coerced:     report.Coerced,
		DropRatio:   report.DropRatio,
		DriftFlag:   report.DriftWarning,
		EnrichedRun: enriched,
	}, nil
}

// Write stores the manifest as pretty-printed JSON at path.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}

	return nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}

	return &m, nil
}

// Verify recomputes the hash of the source file and compares it against the
// manifest.
func (m *Manifest) Verify() (bool, error) {
	hash, err := hashFile(m.SourceFile)
	if err != nil {
		return false, err
	}

	return hash == m.SHA256, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("manifest: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("manifest: hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
