package models

// Raw per-platform records are typed at the extraction boundary so that
// schema drift in an upstream feed surfaces there instead of somewhere
// downstream in the pipeline.

// AppStoreEntry is one entry of the iTunes customer-reviews feed.
type AppStoreEntry struct {
	ID      string
	Title   string
	Content string
	Rating  string
	Author  string
	Updated string
}

// PlayStoreReview is one review from the Play Store review endpoint.
type PlayStoreReview struct {
	ReviewID      string `json:"reviewId"`
	Content       string `json:"content"`
	Score         int    `json:"score"`
	ThumbsUpCount int    `json:"thumbsUpCount"`
	At            string `json:"at"`
}

// RedditItem is a subreddit submission or comment. Submissions carry the
// title and selftext joined into Body; comments carry the comment body.
type RedditItem struct {
	ID         string
	Kind       string // "post" or "comment"
	Body       string
	Author     string
	CreatedUTC float64
	Score      int
	Permalink  string
}
