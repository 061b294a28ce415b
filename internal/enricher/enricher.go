// Package enricher attaches sentiment, emotion and topic labels to clean
// review records by calling external classifiers.
package enricher

import (
	"context"

	"reviewetl/internal/logger"
	"reviewetl/internal/models"
)

// Label sets for the fixed-vocabulary classifiers.
var (
	SentimentLabels = []string{"positive", "neutral", "negative"}
	EmotionLabels   = []string{"joy", "anger", "sadness", "fear", "surprise", "disgust", "neutral"}
)

// Classifier returns one label for the given text.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Stats counts classifier failures per field across one enrichment pass.
type Stats struct {
	Rows            int
	SentimentErrors int
	EmotionErrors   int
	TopicErrors     int
}

// Enricher runs the three classifiers over each record. A classifier
// failure leaves that field empty for the row; it never aborts the pass.
type Enricher struct {
	sentiment Classifier
	emotion   Classifier
	topic     Classifier
	log       *logger.Logger
}

// New creates an Enricher from the three classifiers. Any classifier may be
// nil, in which case its field is left untouched.
func New(sentiment, emotion, topic Classifier, log *logger.Logger) *Enricher {
	return &Enricher{
		sentiment: sentiment,
		emotion:   emotion,
		topic:     topic,
		log:       log.With("stage", "enricher"),
	}
}

// Enrich labels each record in place using its cleaned text. Records whose
// cleaned text is empty are skipped entirely.
func (e *Enricher) Enrich(ctx context.Context, records []*models.ReviewRecord) *Stats {
	stats := &Stats{}

	for _, rec := range records {
		if rec.CleanedReview == "" {
			continue
		}

		stats.Rows++

		if e.sentiment != nil {
			label, err := e.sentiment.Classify(ctx, rec.CleanedReview)
			if err != nil {
				stats.SentimentErrors++
				e.log.Debug("sentiment classification failed", "error", err)
			} else {
				rec.Sentiment = label
			}
		}

		if e.emotion != nil {
			label, err := e.emotion.Classify(ctx, rec.CleanedReview)
			if err != nil {
				stats.EmotionErrors++
				e.log.Debug("emotion classification failed", "error", err)
			} else {
				rec.EmotionLabel = label
			}
		}

		if e.topic != nil {
			label, err := e.topic.Classify(ctx, rec.CleanedReview)
			if err != nil {
				stats.TopicErrors++
				e.log.Debug("topic classification failed", "error", err)
			} else {
				rec.TopicLabel = label
			}
		}
	}

	e.log.Info("enrichment complete",
		"rows", stats.Rows,
		"sentiment_errors", stats.SentimentErrors,
		"emotion_errors", stats.EmotionErrors,
		"topic_errors", stats.TopicErrors,
	)

	return stats
}
