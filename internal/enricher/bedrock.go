package enricher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"reviewetl/internal/config"
)

// ErrUnknownLabel is returned when the model answers with something outside
// the allowed label set.
var ErrUnknownLabel = errors.New("classifier returned unknown label")

// maxReviewChars bounds how much review text is sent per classification.
const maxReviewChars = 2000

// bedrockRequest is the Anthropic messages body for InvokeModel.
type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature"`
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// BedrockClassifier labels text with one value from a fixed set by invoking
// a Bedrock model with a constrained prompt.
type BedrockClassifier struct {
	client  *bedrockruntime.Client
	modelID string
	task    string
	labels  []string
}

// NewBedrockClassifiers builds the sentiment, emotion and topic classifiers
// sharing one Bedrock client, configured from the default AWS credential
// chain and the enrichment section of the pipeline config.
func NewBedrockClassifiers(ctx context.Context, cfg config.EnrichmentConfig) (sentiment, emotion, topic Classifier, err error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)

	sentiment = &BedrockClassifier{client: client, modelID: cfg.ModelID, task: "sentiment", labels: SentimentLabels}
	emotion = &BedrockClassifier{client: client, modelID: cfg.ModelID, task: "emotion", labels: EmotionLabels}
	topic = &BedrockClassifier{client: client, modelID: cfg.ModelID, task: "topic", labels: cfg.Topics}

	return sentiment, emotion, topic, nil
}

// Classify sends the text to the model and validates the answer against the
// allowed label set.
func (c *BedrockClassifier) Classify(ctx context.Context, text string) (string, error) {
	if len(text) > maxReviewChars {
		text = text[:maxReviewChars]
	}

	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        16,
		System: fmt.Sprintf(
			"You label food-delivery app reviews by %s. Respond with exactly one of: %s. No other words.",
			c.task, strings.Join(c.labels, ", "),
		),
		Messages: []bedrockMessage{
			{
				Role:    "user",
				Content: []bedrockContentBlock{{Type: "text", Text: text}},
			},
		},
		Temperature: 0,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke failed: %w", err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Content) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnknownLabel)
	}

	answer := strings.ToLower(strings.TrimSpace(response.Content[0].Text))

	for _, label := range c.labels {
		if answer == strings.ToLower(label) {
			return label, nil
		}
	}

	return "", fmt.Errorf("%w: %q for task %s", ErrUnknownLabel, answer, c.task)
}
