package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewetl/internal/logger"
	"reviewetl/internal/models"
)

func playStoreTestServer(t *testing.T, pages map[string]playStorePage) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/reviews", r.URL.Path)
		assert.Equal(t, "com.dd.doordash", r.URL.Query().Get("package"))

		page, ok := pages[r.URL.Query().Get("token")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		json.NewEncoder(w).Encode(page)
	}))
}

func TestPlayStore_FetchFollowsContinuationTokens(t *testing.T) {
	pages := map[string]playStorePage{
		"": {
			Reviews: []models.PlayStoreReview{
				{ReviewID: "a", Content: "good", Score: 4, ThumbsUpCount: 1, At: "2025-06-01 10:00:00"},
			},
			NextToken: "page2",
		},
		"page2": {
			Reviews: []models.PlayStoreReview{
				{ReviewID: "b", Content: "bad", Score: 1, At: "2025-05-15 08:00:00"},
			},
		},
	}

	srv := playStoreTestServer(t, pages)
	defer srv.Close()

	p := NewPlayStore(newTestFetcher(), srv.URL, logger.NewLogger("error"))

	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	reviews, err := p.Fetch(context.Background(), "com.dd.doordash", cutoff)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "a", reviews[0].ReviewID)
	assert.Equal(t, "b", reviews[1].ReviewID)
}

func TestPlayStore_FetchStopsAtCutoff(t *testing.T) {
	pages := map[string]playStorePage{
		"": {
			Reviews: []models.PlayStoreReview{
				{ReviewID: "old", Content: "ancient", Score: 3, At: "2020-01-01 00:00:00"},
			},
			NextToken: "never-requested",
		},
	}

	srv := playStoreTestServer(t, pages)
	defer srv.Close()

	p := NewPlayStore(newTestFetcher(), srv.URL, logger.NewLogger("error"))

	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	reviews, err := p.Fetch(context.Background(), "com.dd.doordash", cutoff)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestPlayStore_FetchEmptyFirstPage(t *testing.T) {
	srv := playStoreTestServer(t, map[string]playStorePage{"": {}})
	defer srv.Close()

	p := NewPlayStore(newTestFetcher(), srv.URL, logger.NewLogger("error"))

	reviews, err := p.Fetch(context.Background(), "com.dd.doordash", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
