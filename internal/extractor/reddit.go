package extractor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reviewetl/internal/config"
	"reviewetl/internal/logger"
	"reviewetl/internal/models"
)

const (
	redditListingLimit = 100
	redditMaxPages     = 10

	// redditMaxCommentPosts bounds how many posts get their comment
	// trees fetched; comments add one request per post.
	redditMaxCommentPosts = 25

	// redditMinTextLen filters out "this"-style one-word comments before
	// they reach normalization.
	redditMinTextLen = 5
)

// redditSearchTerms narrows subreddit search to app-experience threads.
var redditSearchTerms = []string{
	"app", "order", "delivery", "driver", "refund", "customer service",
}

// Reddit pulls posts and top-level comments from an app's subreddit using
// the OAuth API with script-app (client credentials) auth.
type Reddit struct {
	fetcher  *Fetcher
	creds    config.RedditConfig
	tokenURL string
	apiURL   string
	log      *logger.Logger

	token       string
	tokenExpiry time.Time
}

// NewReddit creates a Reddit extractor. tokenURL and apiURL are the auth
// and API hosts, empty for the public endpoints.
func NewReddit(fetcher *Fetcher, creds config.RedditConfig, tokenURL, apiURL string, log *logger.Logger) *Reddit {
	if tokenURL == "" {
		tokenURL = "https://www.reddit.com/api/v1/access_token"
	}

	if apiURL == "" {
		apiURL = "https://oauth.reddit.com"
	}

	return &Reddit{
		fetcher:  fetcher,
		creds:    creds,
		tokenURL: tokenURL,
		apiURL:   apiURL,
		log:      log.With("platform", string(models.PlatformReddit)),
	}
}

type redditTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
	Score      int     `json:"score"`
	Permalink  string  `json:"permalink"`
}

type redditComment struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
	Score      int     `json:"score"`
	Permalink  string  `json:"permalink"`
}

// Fetch collects posts and top-level comments from the subreddit, newer
// than cutoff, deduplicated by fullname across the new/top/search listings.
func (r *Reddit) Fetch(ctx context.Context, subreddit string, cutoff time.Time) ([]models.RedditItem, error) {
	if err := r.ensureToken(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	var items []models.RedditItem

	var postIDs []string

	collect := func(posts []redditPost) {
		for _, post := range posts {
			full := "t3_" + post.ID
			if seen[full] {
				continue
			}

			seen[full] = true

			created := time.Unix(int64(post.CreatedUTC), 0).UTC()
			if created.Before(cutoff) {
				continue
			}

			text := strings.TrimSpace(post.Title + " " + post.SelfText)
			if len(text) < redditMinTextLen {
				continue
			}

			items = append(items, models.RedditItem{
				ID:         post.ID,
				Kind:       "post",
				Body:       text,
				Author:     post.Author,
				CreatedUTC: post.CreatedUTC,
				Score:      post.Score,
				Permalink:  post.Permalink,
			})

			postIDs = append(postIDs, post.ID)
		}
	}

	for _, listing := range []string{"new", "top"} {
		posts, err := r.listPosts(ctx, subreddit, listing, "", cutoff)
		if err != nil {
			return nil, err
		}

		collect(posts)
	}

	for _, term := range redditSearchTerms {
		posts, err := r.listPosts(ctx, subreddit, "search", term, cutoff)
		if err != nil {
			return nil, err
		}

		collect(posts)
	}

	if len(postIDs) > redditMaxCommentPosts {
		postIDs = postIDs[:redditMaxCommentPosts]
	}

	for _, id := range postIDs {
		comments, err := r.topLevelComments(ctx, subreddit, id)
		if err != nil {
			r.log.Warn("failed to fetch comments, skipping post", "post_id", id, "error", err)

			continue
		}

		for _, c := range comments {
			full := "t1_" + c.ID
			if seen[full] {
				continue
			}

			seen[full] = true

			created := time.Unix(int64(c.CreatedUTC), 0).UTC()
			if created.Before(cutoff) {
				continue
			}

			body := strings.TrimSpace(c.Body)
			if len(body) < redditMinTextLen || body == "[deleted]" || body == "[removed]" {
				continue
			}

			items = append(items, models.RedditItem{
				ID:         c.ID,
				Kind:       "comment",
				Body:       body,
				Author:     c.Author,
				CreatedUTC: c.CreatedUTC,
				Score:      c.Score,
				Permalink:  c.Permalink,
			})
		}
	}

	r.log.Info("fetched reddit items", "subreddit", subreddit, "count", len(items))

	return items, nil
}

// ensureToken obtains (or refreshes) the OAuth token via the client
// credentials grant.
func (r *Reddit) ensureToken(ctx context.Context) error {
	if r.token != "" && time.Now().Before(r.tokenExpiry) {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	basic := base64.StdEncoding.EncodeToString([]byte(r.creds.ClientID + ":" + r.creds.ClientSecret))

	header := http.Header{}
	header.Set("Authorization", "Basic "+basic)
	header.Set("User-Agent", r.creds.UserAgent)

	body, err := r.fetcher.PostForm(ctx, r.tokenURL, form, header)
	if err != nil {
		return fmt.Errorf("failed to obtain reddit token: %w", err)
	}

	var resp redditTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode reddit token response: %w", err)
	}

	if resp.AccessToken == "" {
		return fmt.Errorf("reddit token response missing access_token")
	}

	r.token = resp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).Add(-time.Minute)

	return nil
}

func (r *Reddit) authHeader() http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+r.token)
	header.Set("User-Agent", r.creds.UserAgent)

	return header
}

// listPosts pages through one listing (new, top, or a search term) until
// the cutoff, an empty page, or the page bound.
func (r *Reddit) listPosts(ctx context.Context, subreddit, listing, term string, cutoff time.Time) ([]redditPost, error) {
	var posts []redditPost

	after := ""

	for page := 0; page < redditMaxPages; page++ {
		q := url.Values{}
		q.Set("limit", fmt.Sprint(redditListingLimit))

		if after != "" {
			q.Set("after", after)
		}

		var listURL string

		switch listing {
		case "search":
			q.Set("q", term)
			q.Set("restrict_sr", "1")
			q.Set("sort", "new")
			q.Set("t", "year")
			listURL = fmt.Sprintf("%s/r/%s/search?%s", r.apiURL, subreddit, q.Encode())
		case "top":
			q.Set("t", "year")
			listURL = fmt.Sprintf("%s/r/%s/top?%s", r.apiURL, subreddit, q.Encode())
		default:
			listURL = fmt.Sprintf("%s/r/%s/new?%s", r.apiURL, subreddit, q.Encode())
		}

		var resp redditListing
		if err := r.fetcher.GetJSON(ctx, listURL, r.authHeader(), &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch r/%s %s listing: %w", subreddit, listing, err)
		}

		if len(resp.Data.Children) == 0 {
			break
		}

		pastCutoff := true

		for _, child := range resp.Data.Children {
			if child.Kind != "t3" {
				continue
			}

			var post redditPost
			if err := json.Unmarshal(child.Data, &post); err != nil {
				continue
			}

			if time.Unix(int64(post.CreatedUTC), 0).UTC().Before(cutoff) {
				continue
			}

			pastCutoff = false

			posts = append(posts, post)
		}

		// Only the time-ordered listing can early-exit on cutoff; top
		// and search are not sorted by age.
		if listing == "new" && pastCutoff {
			break
		}

		if resp.Data.After == "" {
			break
		}

		after = resp.Data.After
	}

	return posts, nil
}

// topLevelComments fetches the first-level comments of a post. The comments
// endpoint returns a two-element array: the post listing, then the comment
// listing.
func (r *Reddit) topLevelComments(ctx context.Context, subreddit, postID string) ([]redditComment, error) {
	commentsURL := fmt.Sprintf("%s/r/%s/comments/%s?limit=%d&depth=1", r.apiURL, subreddit, postID, redditListingLimit)

	body, err := r.fetcher.Get(ctx, commentsURL, r.authHeader())
	if err != nil {
		return nil, err
	}

	var listings []redditListing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode comments for %s: %w", postID, err)
	}

	if len(listings) < 2 {
		return nil, nil
	}

	var comments []redditComment

	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}

		var c redditComment
		if err := json.Unmarshal(child.Data, &c); err != nil {
			continue
		}

		comments = append(comments, c)
	}

	return comments, nil
}
