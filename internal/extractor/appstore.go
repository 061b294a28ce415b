package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"reviewetl/internal/logger"
	"reviewetl/internal/models"
)

// appStoreMaxPages is the deepest RSS page the feed serves.
const appStoreMaxPages = 10

// AppStore pulls customer reviews from the iTunes RSS feed, most recent
// first, until the feed runs out or reviews fall behind the cutoff.
type AppStore struct {
	fetcher *Fetcher
	parser  *gofeed.Parser
	baseURL string
	log     *logger.Logger
}

// NewAppStore creates an App Store extractor. baseURL is the feed host,
// empty for the public endpoint.
func NewAppStore(fetcher *Fetcher, baseURL string, log *logger.Logger) *AppStore {
	if baseURL == "" {
		baseURL = "https://itunes.apple.com"
	}

	return &AppStore{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		baseURL: baseURL,
		log:     log.With("platform", string(models.PlatformAppStore)),
	}
}

// Fetch collects reviews for the app with the given store ID, newest first,
// stopping once a page contains only reviews older than cutoff.
func (a *AppStore) Fetch(ctx context.Context, appID string, cutoff time.Time) ([]models.AppStoreEntry, error) {
	var entries []models.AppStoreEntry

	for page := 1; page <= appStoreMaxPages; page++ {
		feedURL := fmt.Sprintf("%s/us/rss/customerreviews/page=%d/id=%s/sortby=mostrecent/xml", a.baseURL, page, appID)

		body, err := a.fetcher.Get(ctx, feedURL, nil)
		if err != nil {
			// Deep pages 404 once the feed is exhausted; what we
			// already collected is still a complete result.
			if page > 1 {
				a.log.Debug("feed page unavailable, stopping", "page", page, "error", err)

				break
			}

			return nil, fmt.Errorf("failed to fetch app store feed for %s: %w", appID, err)
		}

		feed, err := a.parser.ParseString(string(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse app store feed for %s: %w", appID, err)
		}

		if len(feed.Items) == 0 {
			break
		}

		pastCutoff := true

		for _, item := range feed.Items {
			ts := itemTime(item)

			if ts != nil && ts.Before(cutoff) {
				continue
			}

			pastCutoff = false

			entries = append(entries, models.AppStoreEntry{
				ID:      item.GUID,
				Title:   item.Title,
				Content: itemContent(item),
				Rating:  itemRating(item),
				Author:  itemAuthor(item),
				Updated: itemUpdated(item, ts),
			})
		}

		if pastCutoff {
			break
		}
	}

	a.log.Info("fetched app store reviews", "app_id", appID, "count", len(entries))

	return entries, nil
}

// itemRating reads the im:rating extension the customer reviews feed puts
// on each entry. Empty when missing.
func itemRating(item *gofeed.Item) string {
	ratings, ok := item.Extensions["im"]["rating"]
	if !ok || len(ratings) == 0 {
		return ""
	}

	return ratings[0].Value
}

func itemContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}

	return item.Description
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}

	return ""
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}

	return item.PublishedParsed
}

func itemUpdated(item *gofeed.Item, ts *time.Time) string {
	if ts != nil {
		return ts.UTC().Format(time.RFC3339)
	}

	if item.Updated != "" {
		return item.Updated
	}

	return item.Published
}
