package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewetl/internal/models"
)

func testTable() []*models.ReviewRecord {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	return []*models.ReviewRecord{
		{
			ReviewText: "late", CleanedReview: "late",
			Rating: models.IntPtr(1), Timestamp: ts,
			SourcePlatform: models.PlatformAppStore, AppName: "doordash",
			Sentiment: "negative",
		},
		{
			ReviewText: "great", CleanedReview: "great",
			Rating: models.IntPtr(5), Timestamp: ts,
			SourcePlatform: models.PlatformPlayStore, AppName: "doordash",
			Sentiment: "positive",
		},
		{
			ReviewText: "app keeps crashing on checkout", CleanedReview: "app keeps crashing on checkout",
			Upvotes: models.IntPtr(42), Timestamp: ts,
			SourcePlatform: models.PlatformReddit, AppName: "ubereats",
			Sentiment: "negative",
		},
		{
			ReviewText: "meh", CleanedReview: "meh",
			Upvotes: models.IntPtr(3), Timestamp: ts,
			SourcePlatform: models.PlatformReddit, AppName: "ubereats",
		},
	}
}

func TestBuild(t *testing.T) {
	s := Build(testTable())

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.ByPlatform[models.PlatformAppStore])
	assert.Equal(t, 1, s.ByPlatform[models.PlatformPlayStore])
	assert.Equal(t, 2, s.ByPlatform[models.PlatformReddit])
	assert.Equal(t, 2, s.ByApp["doordash"])
	assert.Equal(t, 2, s.ByApp["ubereats"])

	// Two rated reviews: one 1-star, one 5-star.
	assert.Equal(t, 1, s.RatingHistogram[0])
	assert.Equal(t, 1, s.RatingHistogram[4])
	assert.InDelta(t, 3.0, s.AverageRating, 1e-9)

	assert.Equal(t, 2, s.SentimentCounts["negative"])
	assert.Equal(t, 1, s.SentimentCounts["positive"])

	require.Len(t, s.TopUpvoted, 2)
	assert.Equal(t, 42, *s.TopUpvoted[0].Upvotes)
	assert.Equal(t, 3, *s.TopUpvoted[1].Upvotes)
}

func TestBuild_Empty(t *testing.T) {
	s := Build(nil)

	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AverageRating)
	assert.Empty(t, s.TopUpvoted)
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer

	Print(&buf, Build(testTable()))

	out := buf.String()
	assert.Contains(t, out, "Total reviews: 4")
	assert.Contains(t, out, "app_store")
	assert.Contains(t, out, "doordash")
	assert.Contains(t, out, "avg 3.00")
	assert.Contains(t, out, "Most upvoted")
	assert.Contains(t, out, "(42 upvotes)")
}

func TestPrint_EmptyTableDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer

	Print(&buf, Build(nil))

	assert.Contains(t, buf.String(), "Total reviews: 0")
}
