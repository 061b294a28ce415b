package enricher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewetl/internal/logger"
	"reviewetl/internal/models"
)

// fixedClassifier always returns the same label.
type fixedClassifier struct {
	label string
}

func (f *fixedClassifier) Classify(_ context.Context, _ string) (string, error) {
	return f.label, nil
}

// failingClassifier fails on texts it was told to fail on.
type failingClassifier struct {
	label   string
	failOn  string
	failErr error
}

func (f *failingClassifier) Classify(_ context.Context, text string) (string, error) {
	if text == f.failOn {
		return "", f.failErr
	}

	return f.label, nil
}

func testRecords(texts ...string) []*models.ReviewRecord {
	var records []*models.ReviewRecord

	for _, text := range texts {
		records = append(records, &models.ReviewRecord{
			ReviewText:     text,
			CleanedReview:  text,
			Timestamp:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			SourcePlatform: models.PlatformAppStore,
			AppName:        "doordash",
		})
	}

	return records
}

func TestEnrich_LabelsAllFields(t *testing.T) {
	e := New(
		&fixedClassifier{label: "negative"},
		&fixedClassifier{label: "anger"},
		&fixedClassifier{label: "delivery"},
		logger.NewLogger("error"),
	)

	records := testRecords("order was late", "driver was rude")

	stats := e.Enrich(context.Background(), records)

	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 0, stats.SentimentErrors)

	for _, rec := range records {
		assert.Equal(t, "negative", rec.Sentiment)
		assert.Equal(t, "anger", rec.EmotionLabel)
		assert.Equal(t, "delivery", rec.TopicLabel)
	}
}

func TestEnrich_PartialFailureLeavesFieldEmpty(t *testing.T) {
	boom := errors.New("model unavailable")

	e := New(
		&failingClassifier{label: "positive", failOn: "bad row", failErr: boom},
		&fixedClassifier{label: "joy"},
		&fixedClassifier{label: "pricing"},
		logger.NewLogger("error"),
	)

	records := testRecords("good row", "bad row")

	stats := e.Enrich(context.Background(), records)

	assert.Equal(t, 1, stats.SentimentErrors)

	// The failed field stays empty; the other fields are still labeled.
	require.Len(t, records, 2)
	assert.Equal(t, "positive", records[0].Sentiment)
	assert.Empty(t, records[1].Sentiment)
	assert.Equal(t, "joy", records[1].EmotionLabel)
	assert.Equal(t, "pricing", records[1].TopicLabel)
}

func TestEnrich_NilClassifiersSkipFields(t *testing.T) {
	e := New(&fixedClassifier{label: "neutral"}, nil, nil, logger.NewLogger("error"))

	records := testRecords("fine I guess")

	stats := e.Enrich(context.Background(), records)

	assert.Equal(t, 1, stats.Rows)
	assert.Equal(t, "neutral", records[0].Sentiment)
	assert.Empty(t, records[0].EmotionLabel)
	assert.Empty(t, records[0].TopicLabel)
}

func TestEnrich_SkipsEmptyCleanedText(t *testing.T) {
	e := New(&fixedClassifier{label: "neutral"}, nil, nil, logger.NewLogger("error"))

	records := testRecords("labeled")
	records = append(records, &models.ReviewRecord{
		ReviewText:     "🍕🍕",
		SourcePlatform: models.PlatformAppStore,
	})

	stats := e.Enrich(context.Background(), records)

	assert.Equal(t, 1, stats.Rows)
	assert.Empty(t, records[1].Sentiment)
}
