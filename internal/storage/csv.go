// Package storage persists pipeline tables at stage boundaries: CSV files
// per boundary, SQLite and XLSX mirrors of the combined table, a run
// manifest, and the optional S3 backup.
package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"reviewetl/internal/models"
)

// ReviewHeader is the column order of every normalized/combined CSV.
var ReviewHeader = []string{
	"review_text", "cleaned_review", "rating", "upvotes", "timestamp",
	"source_platform", "app_name", "sentiment", "emotion_label", "topic_label",
}

// WriteReviews writes records as CSV at path, overwriting any previous file.
// Absent rating/upvotes are written as empty cells, never as zero.
func WriteReviews(path string, records []*models.ReviewRecord) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(ReviewHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, rec := range records {
		if err := w.Write(reviewRow(rec)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}

	return f.Close()
}

// ReadReviews loads a CSV previously written by WriteReviews.
func ReadReviews(path string) ([]*models.ReviewRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read %s: %w", path, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]*models.ReviewRecord, 0, len(rows)-1)

	for i, row := range rows[1:] {
		rec, err := parseReviewRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv: %s row %d: %w", path, i+2, err)
		}

		records = append(records, rec)
	}

	return records, nil
}

// WriteRows writes an arbitrary raw table (per-platform raw extraction dump).
func WriteRows(path string, header []string, rows [][]string) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}

	return f.Close()
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return f, nil
}

func reviewRow(rec *models.ReviewRecord) []string {
	return []string{
		rec.ReviewText,
		rec.CleanedReview,
		optInt(rec.Rating),
		optInt(rec.Upvotes),
		rec.Timestamp.UTC().Format(time.RFC3339),
		string(rec.SourcePlatform),
		rec.AppName,
		rec.Sentiment,
		rec.EmotionLabel,
		rec.TopicLabel,
	}
}

func parseReviewRow(row []string) (*models.ReviewRecord, error) {
	if len(row) != len(ReviewHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(ReviewHeader), len(row))
	}

	rec := &models.ReviewRecord{
		ReviewText:     row[0],
		CleanedReview:  row[1],
		SourcePlatform: models.Platform(row[5]),
		AppName:        row[6],
		Sentiment:      row[7],
		EmotionLabel:   row[8],
		TopicLabel:     row[9],
	}

	var err error

	if rec.Rating, err = parseOptInt(row[2]); err != nil {
		return nil, fmt.Errorf("rating: %w", err)
	}

	if rec.Upvotes, err = parseOptInt(row[3]); err != nil {
		return nil, fmt.Errorf("upvotes: %w", err)
	}

	if row[4] != "" {
		rec.Timestamp, err = time.Parse(time.RFC3339, row[4])
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
	}

	return rec, nil
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}

	return strconv.Itoa(*v)
}

func parseOptInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}

	return models.IntPtr(v), nil
}
