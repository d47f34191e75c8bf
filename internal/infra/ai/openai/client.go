package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/joshuarebo/insmile-ai/internal/domain/ai"
	"github.com/joshuarebo/insmile-ai/internal/infra/ai/prompt"
)

const defaultMaxTokens = 2048

// Client adapts the OpenAI chat API to the ai.Gateway port. A client built
// without an API key stays constructible; every call then fails with
// ai.ErrUnavailable so the fallback policy upstream takes over.
type Client struct {
	*openai.Client
	Model     string
	MaxTokens int

	missingKey bool
}

func NewClient(apiKey, baseURL, model string, maxTokens int) *Client {
	c := &Client{Model: model, MaxTokens: maxTokens}
	if apiKey == "" {
		c.missingKey = true
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c.Client = openai.NewClientWithConfig(cfg)
	return c
}

// AnalyzeImage sends the scan as an inline data URL with the analyst prompt
// and asks for a JSON object back.
func (c *Client) AnalyzeImage(ctx context.Context, img ai.Image, scanType string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model(),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.User(scanType)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(img),
						Detail: openai.ImageURLDetailHigh,
					}},
				},
			},
		},
	}
	c.applyTokenBudget(&req)
	return c.complete(ctx, req)
}

// GenerateText runs a plain completion with caller-supplied prompts.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	c.applyTokenBudget(&req)
	return c.complete(ctx, req)
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.missingKey {
		return "", fmt.Errorf("%w: no API key configured", ai.ErrUnavailable)
	}
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response carried no choices", ai.ErrRejected)
	}
	return resp.Choices[0].Message.Content, nil
}

// classify folds transport and API failures into the gateway error kinds the
// application layer switches on.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		case apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500:
			return fmt.Errorf("%w: %v", ai.ErrRejected, err)
		}
	}
	return fmt.Errorf("%w: %v", ai.ErrUnavailable, err)
}

func dataURL(img ai.Image) string {
	mime := img.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of
// MaxTokens.
func (c *Client) applyTokenBudget(req *openai.ChatCompletionRequest) {
	limit := c.MaxTokens
	if limit <= 0 {
		limit = defaultMaxTokens
	}
	m := req.Model
	if strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4") || strings.HasPrefix(m, "gpt-5") {
		req.MaxCompletionTokens = limit
	} else {
		req.MaxTokens = limit
	}
}

func (c *Client) model() string {
	if c.Model != "" {
		return c.Model
	}
	return "gpt-4o"
}
