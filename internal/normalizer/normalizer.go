// Package normalizer maps raw per-platform records into the canonical
// ReviewRecord schema.
package normalizer

import (
	"errors"
	"strconv"
	"time"

	"reviewetl/internal/logger"
	"reviewetl/internal/models"
)

// ErrUnknownBrand is returned when an app label matches no configured brand.
var ErrUnknownBrand = errors.New("app label matches no configured brand")

// timestampLayouts are tried in order when parsing platform date strings.
// The feeds are not consistent about formats, so the list is permissive.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Result holds one platform's normalized table together with its drop
// accounting, which the validator's row-count check consumes later.
type Result struct {
	Table    *models.Table
	RawCount int
	Dropped  int
}

// Normalizer converts raw platform records into ReviewRecords.
type Normalizer struct {
	brands *BrandResolver
	log    *logger.Logger
}

// New creates a Normalizer using the given brand resolver.
func New(brands *BrandResolver, log *logger.Logger) *Normalizer {
	return &Normalizer{brands: brands, log: log.With("stage", "normalizer")}
}

// NormalizeAppStore maps iTunes feed entries for one app into ReviewRecords.
func (n *Normalizer) NormalizeAppStore(entries []models.AppStoreEntry, appLabel string) (*Result, error) {
	res := &Result{
		Table:    &models.Table{Platform: models.PlatformAppStore},
		RawCount: len(entries),
	}

	appName, ok := n.brands.Resolve(appLabel)
	if !ok {
		return nil, ErrUnknownBrand
	}

	for _, e := range entries {
		text := e.Content
		if e.Title != "" {
			text = e.Title + " " + e.Content
		}

		rec, ok := n.build(text, e.Updated, appName, models.PlatformAppStore)
		if !ok {
			res.Dropped++

			continue
		}

		// Feed ratings arrive as strings; out-of-range values stay absent.
		if v, err := strconv.Atoi(e.Rating); err == nil && v >= 1 && v <= 5 {
			rec.Rating = models.IntPtr(v)
		}

		res.Table.Records = append(res.Table.Records, rec)
	}

	n.logResult(res, models.PlatformAppStore)

	return res, nil
}

// NormalizePlayStore maps Play Store reviews for one app into ReviewRecords.
func (n *Normalizer) NormalizePlayStore(reviews []models.PlayStoreReview, appLabel string) (*Result, error) {
	res := &Result{
		Table:    &models.Table{Platform: models.PlatformPlayStore},
		RawCount: len(reviews),
	}

	appName, ok := n.brands.Resolve(appLabel)
	if !ok {
		return nil, ErrUnknownBrand
	}

	for _, r := range reviews {
		rec, ok := n.build(r.Content, r.At, appName, models.PlatformPlayStore)
		if !ok {
			res.Dropped++

			continue
		}

		if r.Score >= 1 && r.Score <= 5 {
			rec.Rating = models.IntPtr(r.Score)
		}

		res.Table.Records = append(res.Table.Records, rec)
	}

	n.logResult(res, models.PlatformPlayStore)

	return res, nil
}

// NormalizeReddit maps subreddit posts and comments into ReviewRecords.
func (n *Normalizer) NormalizeReddit(items []models.RedditItem, appLabel string) (*Result, error) {
	res := &Result{
		Table:    &models.Table{Platform: models.PlatformReddit},
		RawCount: len(items),
	}

	appName, ok := n.brands.Resolve(appLabel)
	if !ok {
		return nil, ErrUnknownBrand
	}

	for _, item := range items {
		if item.CreatedUTC <= 0 {
			res.Dropped++

			continue
		}

		ts := time.Unix(int64(item.CreatedUTC), 0).UTC()

		rec, ok := n.buildWithTime(item.Body, ts, appName, models.PlatformReddit)
		if !ok {
			res.Dropped++

			continue
		}

		// Downvoted items have negative scores; the schema only carries
		// non-negative upvote counts, so those stay absent.
		if item.Score >= 0 {
			rec.Upvotes = models.IntPtr(item.Score)
		}

		res.Table.Records = append(res.Table.Records, rec)
	}

	n.logResult(res, models.PlatformReddit)

	return res, nil
}

// build parses the timestamp string and assembles a record. Returns false
// when the row must be dropped (no text, empty cleaned text, bad timestamp).
func (n *Normalizer) build(text, rawTime, appName string, platform models.Platform) (*models.ReviewRecord, bool) {
	ts, ok := ParseTimestamp(rawTime)
	if !ok {
		return nil, false
	}

	return n.buildWithTime(text, ts, appName, platform)
}

func (n *Normalizer) buildWithTime(text string, ts time.Time, appName string, platform models.Platform) (*models.ReviewRecord, bool) {
	if text == "" || ts.IsZero() {
		return nil, false
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, false
	}

	return &models.ReviewRecord{
		ReviewText:     text,
		CleanedReview:  cleaned,
		Timestamp:      ts.UTC(),
		SourcePlatform: platform,
		AppName:        appName,
	}, true
}

func (n *Normalizer) logResult(res *Result, platform models.Platform) {
	n.log.Info("normalized platform table",
		"platform", string(platform),
		"raw", res.RawCount,
		"kept", len(res.Table.Records),
		"dropped", res.Dropped,
	)
}

// ParseTimestamp parses a platform date string, trying each known layout.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
