package extractor

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"reviewetl/internal/logger"
	"reviewetl/internal/models"
	"reviewetl/internal/normalizer"
)

// playStoreMaxPages bounds continuation-token pagination so a misbehaving
// endpoint cannot loop forever.
const playStoreMaxPages = 50

// playStorePage is one page of the review export endpoint.
type playStorePage struct {
	Reviews   []models.PlayStoreReview `json:"reviews"`
	NextToken string                   `json:"nextToken"`
}

// PlayStore pulls reviews from the Play Store review export endpoint,
// following continuation tokens until the cutoff or the last page.
type PlayStore struct {
	fetcher *Fetcher
	baseURL string
	log     *logger.Logger
}

// NewPlayStore creates a Play Store extractor. baseURL is the export host,
// empty for the public endpoint.
func NewPlayStore(fetcher *Fetcher, baseURL string, log *logger.Logger) *PlayStore {
	if baseURL == "" {
		baseURL = "https://playexport.googleapis.com"
	}

	return &PlayStore{
		fetcher: fetcher,
		baseURL: baseURL,
		log:     log.With("platform", string(models.PlatformPlayStore)),
	}
}

// Fetch collects reviews for the given package name, newest first, stopping
// once a page contains only reviews older than cutoff.
func (p *PlayStore) Fetch(ctx context.Context, packageName string, cutoff time.Time) ([]models.PlayStoreReview, error) {
	var reviews []models.PlayStoreReview

	token := ""

	for page := 1; page <= playStoreMaxPages; page++ {
		q := url.Values{}
		q.Set("package", packageName)
		q.Set("hl", "en")
		q.Set("sort", "newest")
		q.Set("num", "100")

		if token != "" {
			q.Set("token", token)
		}

		pageURL := fmt.Sprintf("%s/v1/reviews?%s", p.baseURL, q.Encode())

		var resp playStorePage
		if err := p.fetcher.GetJSON(ctx, pageURL, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch play store reviews for %s: %w", packageName, err)
		}

		if len(resp.Reviews) == 0 {
			break
		}

		pastCutoff := true

		for _, rev := range resp.Reviews {
			if ts, ok := normalizer.ParseTimestamp(rev.At); ok && ts.Before(cutoff) {
				continue
			}

			pastCutoff = false

			reviews = append(reviews, rev)
		}

		if pastCutoff || resp.NextToken == "" {
			break
		}

		token = resp.NextToken
	}

	p.log.Info("fetched play store reviews", "package", packageName, "count", len(reviews))

	return reviews, nil
}
