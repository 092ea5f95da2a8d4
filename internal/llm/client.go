// Package llm provides the completion-service client.
//
// The completion service is used for three purposes with different
// instructions and temperatures: scoring an exchange, extracting facts,
// and generating the persona reply. Callers own the fallback behavior;
// this package only reports errors.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Request is one completion call.
type Request struct {
	// Instruction is the system directive (persona or task constraint).
	Instruction string
	// UserText is the user-role content.
	UserText string
	// Temperature for sampling; 0 for the structured scoring/extraction
	// calls, higher for reply generation.
	Temperature float64
	// JSONMode forces a JSON-object response format.
	JSONMode bool
}

// Completer is the minimal interface the pipelines use to call the
// completion service.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient implements Completer against the OpenAI chat completions API.
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a completion client.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends one chat completion request and returns the text content.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	// Bound the call if the caller did not.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Instruction),
			openai.UserMessage(req.UserText),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion: empty content")
	}
	return content, nil
}
