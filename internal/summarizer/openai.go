package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	baseMaxOutputTokens  int64 = 2048
	limitMaxOutputTokens int64 = 8192
)

// OpenAISummarizer calls the Responses API of OpenAI or of any compatible server.
type OpenAISummarizer struct {
	client openai.Client
	model  string
}

type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOpenAISummarizer builds a new summarizer instance.
func NewOpenAISummarizer(opts OpenAIOptions) (*OpenAISummarizer, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("model is empty")
	}

	clientOpts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if apiKey := strings.TrimSpace(opts.APIKey); apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &OpenAISummarizer{
		client: openai.NewClient(clientOpts...),
		model:  model,
	}, nil
}

func (s *OpenAISummarizer) Model() string {
	return s.model
}

// Summarize sends the instruction as system instructions and the document
// text as input.
func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (string, error) {
	maxOutputTokens := baseMaxOutputTokens
	for {
		resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           s.model,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Instructions:    openai.String(input.Instruction),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(input.Text),
			},
		})
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) {
				return "", &StatusError{
					StatusCode: apiErr.StatusCode,
					Body:       strings.TrimSpace(apiErr.Message),
				}
			}

			return "", &TransportError{Err: err}
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}
			return "", fmt.Errorf(
				"%w: response is incomplete (reason = %s, maxOutputTokens = %d)",
				ErrMalformedResponse,
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		return strings.TrimSpace(resp.OutputText()), nil
	}
}
