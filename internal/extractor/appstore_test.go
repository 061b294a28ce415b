package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewetl/internal/logger"
)

const appStoreFeedPage1 = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns:im="http://itunes.apple.com/rss" xmlns="http://www.w3.org/2005/Atom">
  <title>iTunes Store: Customer Reviews</title>
  <updated>2025-06-03T00:00:00-07:00</updated>
  <entry>
    <updated>2025-06-01T10:00:00-07:00</updated>
    <id>review-1</id>
    <title>Terrible</title>
    <content type="text">Order was late!!</content>
    <im:rating>1</im:rating>
    <author><name>hungry_user</name></author>
  </entry>
  <entry>
    <updated>2025-06-02T09:00:00-07:00</updated>
    <id>review-2</id>
    <title>Love it</title>
    <content type="text">Fast delivery, hot food</content>
    <im:rating>5</im:rating>
    <author><name>happy_user</name></author>
  </entry>
</feed>`

const appStoreFeedEmpty = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns:im="http://itunes.apple.com/rss" xmlns="http://www.w3.org/2005/Atom">
  <title>iTunes Store: Customer Reviews</title>
  <updated>2025-06-03T00:00:00-07:00</updated>
</feed>`

func appStoreTestServer(t *testing.T, pages map[int]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for page, body := range pages {
			if r.URL.Path == fmt.Sprintf("/us/rss/customerreviews/page=%d/id=123/sortby=mostrecent/xml", page) {
				w.Write([]byte(body))

				return
			}
		}

		w.WriteHeader(http.StatusNotFound)
	}))
}

func TestAppStore_Fetch(t *testing.T) {
	srv := appStoreTestServer(t, map[int]string{1: appStoreFeedPage1, 2: appStoreFeedEmpty})
	defer srv.Close()

	a := NewAppStore(newTestFetcher(), srv.URL, logger.NewLogger("error"))

	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	entries, err := a.Fetch(context.Background(), "123", cutoff)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "review-1", entries[0].ID)
	assert.Equal(t, "Terrible", entries[0].Title)
	assert.Equal(t, "Order was late!!", entries[0].Content)
	assert.Equal(t, "1", entries[0].Rating)
	assert.Equal(t, "hungry_user", entries[0].Author)
	assert.Equal(t, "2025-06-01T17:00:00Z", entries[0].Updated)

	assert.Equal(t, "5", entries[1].Rating)
}

func TestAppStore_FetchStopsAtCutoff(t *testing.T) {
	srv := appStoreTestServer(t, map[int]string{1: appStoreFeedPage1})
	defer srv.Close()

	a := NewAppStore(newTestFetcher(), srv.URL, logger.NewLogger("error"))

	// Both fixture reviews are from June 2025; a later cutoff drops them all.
	cutoff := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	entries, err := a.Fetch(context.Background(), "123", cutoff)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppStore_FetchStopsWhenDeepPagesMissing(t *testing.T) {
	// Only page 1 exists; the 404 on page 2 ends pagination without error.
	srv := appStoreTestServer(t, map[int]string{1: appStoreFeedPage1})
	defer srv.Close()

	a := NewAppStore(newTestFetcher(), srv.URL, logger.NewLogger("error"))

	entries, err := a.Fetch(context.Background(), "123", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAppStore_FetchFirstPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewAppStore(newTestFetcher(), srv.URL, logger.NewLogger("error"))

	_, err := a.Fetch(context.Background(), "123", time.Time{})
	assert.Error(t, err)
}
