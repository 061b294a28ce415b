// Package report computes descriptive statistics over the clean review
// table and renders them as a console summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"reviewetl/internal/models"
)

// Summary holds the aggregates computed over the clean table.
type Summary struct {
	Total           int
	ByPlatform      map[models.Platform]int
	ByApp           map[string]int
	RatingHistogram [5]int
	AverageRating   float64
	SentimentCounts map[string]int
	TopUpvoted      []*models.ReviewRecord
}

// topUpvotedCount bounds the "most upvoted" section of the summary.
const topUpvotedCount = 5

// Build computes a Summary from the clean table.
func Build(records []*models.ReviewRecord) *Summary {
	s := &Summary{
		Total:           len(records),
		ByPlatform:      make(map[models.Platform]int),
		ByApp:           make(map[string]int),
		SentimentCounts: make(map[string]int),
	}

	ratingSum := 0
	ratingCount := 0

	var upvoted []*models.ReviewRecord

	for _, rec := range records {
		s.ByPlatform[rec.SourcePlatform]++
		s.ByApp[rec.AppName]++

		if rec.Rating != nil {
			s.RatingHistogram[*rec.Rating-1]++
			ratingSum += *rec.Rating
			ratingCount++
		}

		if rec.Sentiment != "" {
			s.SentimentCounts[rec.Sentiment]++
		}

		if rec.Upvotes != nil && *rec.Upvotes > 0 {
			upvoted = append(upvoted, rec)
		}
	}

	if ratingCount > 0 {
		s.AverageRating = float64(ratingSum) / float64(ratingCount)
	}

	sort.SliceStable(upvoted, func(i, j int) bool {
		return *upvoted[i].Upvotes > *upvoted[j].Upvotes
	})

	if len(upvoted) > topUpvotedCount {
		upvoted = upvoted[:topUpvotedCount]
	}

	s.TopUpvoted = upvoted

	return s
}

// Print renders the summary as an aligned text report.
func Print(w io.Writer, s *Summary) {
	rule := strings.Repeat("-", 52)

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "Review Pipeline Summary\n")
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Total reviews: %d\n\n", s.Total)

	fmt.Fprintf(w, "By platform\n")

	for _, p := range models.MergeOrder {
		if n, ok := s.ByPlatform[p]; ok {
			fmt.Fprintf(w, "  %s %d\n", pad(string(p), 14), n)
		}
	}

	fmt.Fprintf(w, "\nBy app\n")

	for _, app := range sortedKeys(s.ByApp) {
		fmt.Fprintf(w, "  %s %d\n", pad(app, 14), s.ByApp[app])
	}

	if s.AverageRating > 0 {
		fmt.Fprintf(w, "\nRatings (avg %.2f)\n", s.AverageRating)

		for i, n := range s.RatingHistogram {
			fmt.Fprintf(w, "  %d star %s (%d)\n", i+1, strings.Repeat("#", scaled(n, s.Total)), n)
		}
	}

	if len(s.SentimentCounts) > 0 {
		fmt.Fprintf(w, "\nSentiment\n")

		for _, label := range sortedKeys(s.SentimentCounts) {
			fmt.Fprintf(w, "  %s %d\n", pad(label, 14), s.SentimentCounts[label])
		}
	}

	if len(s.TopUpvoted) > 0 {
		fmt.Fprintf(w, "\nMost upvoted\n")

		for i, rec := range s.TopUpvoted {
			fmt.Fprintf(w, "  %d. %s (%d upvotes)\n", i+1, clip(rec.CleanedReview, 40), *rec.Upvotes)
		}
	}

	fmt.Fprintf(w, "%s\n", rule)
}

// pad right-pads s to the given display width. Review text can contain
// wide runes, so padding goes through runewidth rather than len.
func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// clip truncates s to a display width, appending an ellipsis when cut.
func clip(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}

	return runewidth.Truncate(s, width, "...")
}

// scaled maps a count to a 0..20 bar length relative to the total.
func scaled(n, total int) int {
	if total == 0 {
		return 0
	}

	return n * 20 / total
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
