// Package validator runs data-quality checks over the merged review table.
package validator

import (
	"time"

	"reviewetl/internal/logger"
	"reviewetl/internal/models"
)

// Check names used as keys in the validation report.
const (
	CheckMissingFields = "missing_fields"
	CheckBadTimestamp  = "bad_timestamp"
	CheckDuplicate     = "duplicate"
	CheckRatingRange   = "rating_out_of_range"
	CheckUpvotesRange  = "negative_upvotes"
)

// Report summarizes what validation did to the table. Dropped maps check
// name to rows removed; Coerced maps check name to rows whose numeric field
// was reset to absent instead of dropping the row. A dropped row is counted
// under the first check that rejected it, so RowsIn - RowsOut equals the sum
// of Dropped.
type Report struct {
	RowsIn       int
	RowsOut      int
	Expected     int
	Dropped      map[string]int
	Coerced      map[string]int
	DropRatio    float64
	DriftWarning bool
}

// DroppedTotal returns the total number of rows removed.
func (r *Report) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}

	return total
}

// Validator applies the checks in a fixed order. Checks are idempotent:
// validating an already-clean table drops nothing further.
type Validator struct {
	driftThreshold float64
	log            *logger.Logger
}

// New creates a Validator. driftThreshold is the advisory drop-ratio above
// which the row-count-consistency check logs a warning.
func New(driftThreshold float64, log *logger.Logger) *Validator {
	return &Validator{
		driftThreshold: driftThreshold,
		log:            log.With("stage", "validator"),
	}
}

// Validate runs all checks over records and returns the surviving rows plus
// the report. expected is the pre-drop row count from extraction, used only
// by the advisory row-count check; pass 0 to compare against len(records).
func (v *Validator) Validate(records []*models.ReviewRecord, expected int) ([]*models.ReviewRecord, *Report) {
	report := &Report{
		RowsIn:   len(records),
		Expected: expected,
		Dropped:  make(map[string]int),
		Coerced:  make(map[string]int),
	}

	if report.Expected == 0 {
		report.Expected = len(records)
	}

	clean := make([]*models.ReviewRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		switch {
		case missingCritical(rec):
			report.Dropped[CheckMissingFields]++
		case !validTimestamp(rec.Timestamp):
			// Final guard; the normalizer already drops unparseable dates.
			report.Dropped[CheckBadTimestamp]++
		default:
			key := dedupeKey(rec)
			if _, dup := seen[key]; dup {
				report.Dropped[CheckDuplicate]++

				continue
			}

			seen[key] = struct{}{}

			v.coerceNumerics(rec, report)
			clean = append(clean, rec)
		}
	}

	report.RowsOut = len(clean)

	if report.Expected > 0 {
		report.DropRatio = 1 - float64(report.RowsOut)/float64(report.Expected)
	}

	if report.DropRatio > v.driftThreshold {
		report.DriftWarning = true
		v.log.Warn("row count drifted beyond threshold",
			"expected", report.Expected,
			"kept", report.RowsOut,
			"drop_ratio", report.DropRatio,
			"threshold", v.driftThreshold,
		)
	}

	v.log.Info("validation complete",
		"rows_in", report.RowsIn,
		"rows_out", report.RowsOut,
		"dropped", report.DroppedTotal(),
	)

	return clean, report
}

// coerceNumerics enforces the numeric ranges: rating must be 1..5, upvotes
// non-negative. Out-of-range values are reset to absent rather than
// dropping an otherwise valid row.
func (v *Validator) coerceNumerics(rec *models.ReviewRecord, report *Report) {
	if rec.Rating != nil && (*rec.Rating < 1 || *rec.Rating > 5) {
		rec.Rating = nil
		report.Coerced[CheckRatingRange]++
	}

	if rec.Upvotes != nil && *rec.Upvotes < 0 {
		rec.Upvotes = nil
		report.Coerced[CheckUpvotesRange]++
	}
}

func missingCritical(rec *models.ReviewRecord) bool {
	return rec.ReviewText == "" || rec.Timestamp.IsZero() || !rec.SourcePlatform.Valid()
}

func validTimestamp(t time.Time) bool {
	// Anything before the Unix epoch is a parse artifact, not a review date.
	return !t.IsZero() && t.Unix() > 0
}

// dedupeKey identifies duplicates on (review text, timestamp). The key is
// platform-independent, so a verbatim cross-platform duplicate collapses to
// the first occurrence in merge order.
func dedupeKey(rec *models.ReviewRecord) string {
	return rec.ReviewText + "\x1f" + rec.Timestamp.UTC().Format(time.RFC3339Nano)
}
