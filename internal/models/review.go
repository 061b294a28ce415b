// Package models defines data structures shared across the pipeline stages.
package models

import "time"

// Platform identifies the source a review was extracted from.
type Platform string

// Supported source platforms.
const (
	PlatformAppStore  Platform = "app_store"
	PlatformPlayStore Platform = "play_store"
	PlatformReddit    Platform = "reddit"
)

// MergeOrder is the fixed platform order used when concatenating normalized
// tables. The order carries no meaning, but keeping it fixed makes the
// combined output reproducible across runs.
var MergeOrder = []Platform{PlatformAppStore, PlatformPlayStore, PlatformReddit}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAppStore, PlatformPlayStore, PlatformReddit:
		return true
	}

	return false
}

// ReviewRecord is the canonical per-review row used throughout the pipeline.
// Rating is only set for star-rated platforms and Upvotes only for Reddit;
// a nil pointer means the value is absent, not zero.
type ReviewRecord struct {
	ReviewText     string
	CleanedReview  string
	Rating         *int
	Upvotes        *int
	Timestamp      time.Time
	SourcePlatform Platform
	AppName        string

	// Populated by the enricher; empty until then.
	Sentiment    string
	EmotionLabel string
	TopicLabel   string
}

// Table groups normalized records under the platform that produced them.
type Table struct {
	Platform Platform
	Records  []*ReviewRecord
}

// IntPtr returns a pointer to v. Convenience for the optional numeric fields.
func IntPtr(v int) *int {
	return &v
}
