package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewetl/internal/logger"
	"reviewetl/internal/models"
)

func newTestNormalizer() *Normalizer {
	return New(NewBrandResolver(testApps()), logger.NewLogger("error"))
}

func TestNormalizeAppStore(t *testing.T) {
	n := newTestNormalizer()

	entries := []models.AppStoreEntry{
		{
			ID:      "1",
			Title:   "Terrible",
			Content: "Order was late!!",
			Rating:  "1",
			Updated: "2025-06-01T10:00:00Z",
		},
		{
			ID:      "2",
			Content: "Love it",
			Rating:  "5",
			Updated: "2025-06-02T10:00:00Z",
		},
	}

	res, err := n.NormalizeAppStore(entries, "DoorDash")
	require.NoError(t, err)

	require.Len(t, res.Table.Records, 2)
	assert.Equal(t, 2, res.RawCount)
	assert.Equal(t, 0, res.Dropped)
	assert.Equal(t, models.PlatformAppStore, res.Table.Platform)

	rec := res.Table.Records[0]
	assert.Equal(t, "Terrible Order was late!!", rec.ReviewText)
	assert.Equal(t, "terrible order was late", rec.CleanedReview)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 1, *rec.Rating)
	assert.Nil(t, rec.Upvotes)
	assert.Equal(t, "doordash", rec.AppName)
	assert.Equal(t, models.PlatformAppStore, rec.SourcePlatform)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), rec.Timestamp)
}

func TestNormalizeAppStore_DropsBadRows(t *testing.T) {
	n := newTestNormalizer()

	entries := []models.AppStoreEntry{
		{ID: "1", Content: "fine", Rating: "4", Updated: "not a date"},
		{ID: "2", Content: "", Rating: "4", Updated: "2025-06-01T10:00:00Z"},
		{ID: "3", Content: "🍕🍕", Rating: "4", Updated: "2025-06-01T10:00:00Z"},
		{ID: "4", Content: "kept", Rating: "4", Updated: "2025-06-01T10:00:00Z"},
	}

	res, err := n.NormalizeAppStore(entries, "doordash")
	require.NoError(t, err)

	assert.Equal(t, 4, res.RawCount)
	assert.Equal(t, 3, res.Dropped)
	require.Len(t, res.Table.Records, 1)
	assert.Equal(t, "kept", res.Table.Records[0].ReviewText)
}

func TestNormalizeAppStore_InvalidRatingStaysAbsent(t *testing.T) {
	n := newTestNormalizer()

	entries := []models.AppStoreEntry{
		{ID: "1", Content: "ok", Rating: "9", Updated: "2025-06-01T10:00:00Z"},
		{ID: "2", Content: "ok too", Rating: "junk", Updated: "2025-06-01T10:00:00Z"},
	}

	res, err := n.NormalizeAppStore(entries, "doordash")
	require.NoError(t, err)
	require.Len(t, res.Table.Records, 2)

	assert.Nil(t, res.Table.Records[0].Rating)
	assert.Nil(t, res.Table.Records[1].Rating)
}

func TestNormalizeAppStore_UnknownBrand(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.NormalizeAppStore(nil, "postmates")
	assert.ErrorIs(t, err, ErrUnknownBrand)
}

func TestNormalizePlayStore(t *testing.T) {
	n := newTestNormalizer()

	reviews := []models.PlayStoreReview{
		{ReviewID: "a", Content: "Great food, bad app", Score: 3, ThumbsUpCount: 12, At: "2025-05-20 08:30:00"},
		{ReviewID: "b", Content: "meh", Score: 0, At: "2025-05-21 09:00:00"},
	}

	res, err := n.NormalizePlayStore(reviews, "Uber Eats")
	require.NoError(t, err)
	require.Len(t, res.Table.Records, 2)

	rec := res.Table.Records[0]
	assert.Equal(t, "ubereats", rec.AppName)
	assert.Equal(t, models.PlatformPlayStore, rec.SourcePlatform)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 3, *rec.Rating)
	assert.Nil(t, rec.Upvotes)

	// Score 0 is outside 1..5, the rating stays absent.
	assert.Nil(t, res.Table.Records[1].Rating)
}

func TestNormalizeReddit(t *testing.T) {
	n := newTestNormalizer()

	items := []models.RedditItem{
		{ID: "p1", Kind: "post", Body: "App crashed during checkout", CreatedUTC: 1748772000, Score: 42},
		{ID: "c1", Kind: "comment", Body: "same here", CreatedUTC: 1748775600, Score: -3},
		{ID: "c2", Kind: "comment", Body: "works for me", CreatedUTC: 0, Score: 1},
	}

	res, err := n.NormalizeReddit(items, "grubhub")
	require.NoError(t, err)

	assert.Equal(t, 3, res.RawCount)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Table.Records, 2)

	rec := res.Table.Records[0]
	assert.Equal(t, models.PlatformReddit, rec.SourcePlatform)
	assert.Nil(t, rec.Rating)
	require.NotNil(t, rec.Upvotes)
	assert.Equal(t, 42, *rec.Upvotes)
	assert.Equal(t, time.Unix(1748772000, 0).UTC(), rec.Timestamp)

	// Negative scores carry no upvote count.
	assert.Nil(t, res.Table.Records[1].Upvotes)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2025-06-01T10:00:00Z", true},
		{"2025-06-01T10:00:00-07:00", true},
		{"2025-06-01 10:00:00", true},
		{"2025-06-01", true},
		{"junk", false},
		{"", false},
	}

	for _, tc := range tests {
		_, ok := ParseTimestamp(tc.input)
		assert.Equal(t, tc.ok, ok, "ParseTimestamp(%q)", tc.input)
	}
}
