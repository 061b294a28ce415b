// Package merger concatenates per-platform normalized tables into one
// unified table.
package merger

import (
	"errors"
	"fmt"

	"reviewetl/internal/models"
)

// Merge contract errors. These indicate a programming mistake in a
// normalizer, not bad data, and abort the run.
var (
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrUnknownPlatform  = errors.New("table has unknown platform")
	ErrPlatformConflict = errors.New("record platform does not match its table")
)

// Merge concatenates the given tables into a single slice. Insertion order
// is preserved within each table and platforms are concatenated in the
// fixed models.MergeOrder, regardless of the order tables are passed in.
//
// Every row is checked against the normalizer contract (platform tag set
// and matching the table it arrived in); a violation fails the merge.
func Merge(tables []*models.Table) ([]*models.ReviewRecord, error) {
	byPlatform := make(map[models.Platform][]*models.Table, len(tables))

	for _, t := range tables {
		if t == nil {
			continue
		}

		if !t.Platform.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, t.Platform)
		}

		byPlatform[t.Platform] = append(byPlatform[t.Platform], t)
	}

	var merged []*models.ReviewRecord

	for _, platform := range models.MergeOrder {
		for _, t := range byPlatform[platform] {
			for i, rec := range t.Records {
				if err := checkContract(rec, platform, i); err != nil {
					return nil, err
				}

				merged = append(merged, rec)
			}
		}
	}

	return merged, nil
}

func checkContract(rec *models.ReviewRecord, platform models.Platform, idx int) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record at %s[%d]", ErrSchemaMismatch, platform, idx)
	}

	if !rec.SourcePlatform.Valid() {
		return fmt.Errorf("%w: record %s[%d] has platform %q", ErrSchemaMismatch, platform, idx, rec.SourcePlatform)
	}

	if rec.SourcePlatform != platform {
		return fmt.Errorf("%w: record %s[%d] tagged %q", ErrPlatformConflict, platform, idx, rec.SourcePlatform)
	}

	return nil
}
