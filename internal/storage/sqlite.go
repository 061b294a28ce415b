package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reviewetl/internal/models"
)

// MirrorSQLite writes the combined table into a SQLite database file,
// replacing any previous contents. The mirror exists for ad-hoc querying;
// the CSV stays the source of truth.
func MirrorSQLite(path string, records []*models.ReviewRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sqlite: create output dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(`
		DROP TABLE IF EXISTS reviews;
		CREATE TABLE reviews (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			review_text     TEXT    NOT NULL,
			cleaned_review  TEXT    NOT NULL,
			rating          INTEGER,
			upvotes         INTEGER,
			timestamp       TEXT    NOT NULL,
			source_platform TEXT    NOT NULL,
			app_name        TEXT    NOT NULL,
			sentiment       TEXT    NOT NULL DEFAULT '',
			emotion_label   TEXT    NOT NULL DEFAULT '',
			topic_label     TEXT    NOT NULL DEFAULT ''
		);
	`); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO reviews (
			review_text, cleaned_review, rating, upvotes, timestamp,
			source_platform, app_name, sentiment, emotion_label, topic_label
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()

		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(
			rec.ReviewText,
			rec.CleanedReview,
			nullableInt(rec.Rating),
			nullableInt(rec.Upvotes),
			rec.Timestamp.UTC().Format(time.RFC3339),
			string(rec.SourcePlatform),
			rec.AppName,
			rec.Sentiment,
			rec.EmotionLabel,
			rec.TopicLabel,
		)
		if err != nil {
			tx.Rollback()

			return fmt.Errorf("sqlite: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	return db.Close()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}

	return *v
}
