package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBodyBytes = 4 << 10

type generateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Stream  bool   `json:"stream"`
	Context []int  `json:"context"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// GenerateSummarizer calls a text-generation endpoint speaking the
// `/api/generate` protocol (model, prompt, stream, context) with one
// non-streamed request per summary.
type GenerateSummarizer struct {
	url    string
	model  string
	client *http.Client
}

func NewGenerateSummarizer(url string, model string, timeout time.Duration) *GenerateSummarizer {
	return &GenerateSummarizer{
		url:    strings.TrimSpace(url),
		model:  strings.TrimSpace(model),
		client: &http.Client{Timeout: timeout},
	}
}

func (s *GenerateSummarizer) Model() string {
	return s.model
}

func (s *GenerateSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   s.model,
		Prompt:  input.Instruction + " " + input.Text,
		Stream:  false,
		Context: []int{},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(errBody)),
		}
	}

	var out generateResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", &TransportError{Err: err}
		}

		return "", fmt.Errorf("%w: decode body: %w", ErrMalformedResponse, err)
	}

	return out.Response, nil
}
