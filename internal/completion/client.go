package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/readme-readyou/readme-readyou/internal/config"
	"github.com/readme-readyou/readme-readyou/pkg/metrics"
)

// Client sends a single user prompt to a chat completion API and returns the text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient implements Client with the openai-go SDK. Any OpenAI-compatible
// endpoint works, Perplexity included.
type OpenAIClient struct {
	model  string
	client openai.Client
}

func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("completion api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("completion model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// failures surface to the caller; nothing retries a generation
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return &OpenAIClient{model: cfg.Model, client: openai.NewClient(opts...)}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			metrics.UpstreamRequests.WithLabelValues("completion", fmt.Sprintf("%d", apiErr.StatusCode)).Inc()
			return "", fmt.Errorf("completion API returned %d: %w", apiErr.StatusCode, err)
		}
		metrics.UpstreamRequests.WithLabelValues("completion", "error").Inc()
		return "", fmt.Errorf("completion request: %w", err)
	}
	metrics.UpstreamRequests.WithLabelValues("completion", "200").Inc()
	if len(resp.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.New("completion response has empty content")
	}
	return content, nil
}
