package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sony/gobreaker"
)

const (
	generationPath    = "/ml/v1/text/generation"
	generationVersion = "2023-05-29"
)

// GenerationRequest is everything the generation endpoint needs besides the
// bearer token.
type GenerationRequest struct {
	Prompt    string
	ModelID   string
	ProjectID string
	Region    string
}

type generationParameters struct {
	DecodingMethod    string  `json:"decoding_method"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

// Greedy decoding with mild repetition suppression; not user-configurable.
var explainParameters = generationParameters{
	DecodingMethod:    "greedy",
	MaxNewTokens:      1000,
	Temperature:       0.3,
	RepetitionPenalty: 1.1,
}

type generationBody struct {
	Input      string               `json:"input"`
	Parameters generationParameters `json:"parameters"`
	ModelID    string               `json:"model_id"`
	ProjectID  string               `json:"project_id"`
}

// WatsonxClient calls the watsonx.ai text generation API. Each region gets
// its own circuit breaker.
type WatsonxClient struct {
	baseURL string // may contain {region}
	client  *http.Client
	retry   RetryPolicy

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewWatsonxClient(baseURL string, client *http.Client, retry RetryPolicy) *WatsonxClient {
	if client == nil {
		client = &http.Client{}
	}
	return &WatsonxClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		retry:    retry,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *WatsonxClient) breaker(region string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[region]
	if !ok {
		cb = newBreaker("watsonx.generation." + region)
		c.breakers[region] = cb
	}
	return cb
}

func (c *WatsonxClient) endpoint(region string) string {
	return strings.ReplaceAll(c.baseURL, "{region}", region) + generationPath + "?version=" + generationVersion
}

// Generate submits the prompt and returns the first generated text. A non-200
// answer is returned as *GenerationError.
func (c *WatsonxClient) Generate(ctx context.Context, token string, gr GenerationRequest) (string, error) {
	body, err := json.Marshal(generationBody{
		Input:      gr.Prompt,
		Parameters: explainParameters,
		ModelID:    gr.ModelID,
		ProjectID:  gr.ProjectID,
	})
	if err != nil {
		return "", err
	}
	url := c.endpoint(gr.Region)
	cb := c.breaker(gr.Region)

	return retry(ctx, "watsonx.generate", c.retry, func() (string, error) {
		return guarded(cb, func() (string, error) {
			return c.post(ctx, url, token, body)
		})
	})
}

func (c *WatsonxClient) post(ctx context.Context, url, token string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("watsonx request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &GenerationError{Status: resp.StatusCode, Body: string(raw)}
	}

	var gr struct {
		Results []struct {
			GeneratedText string `json:"generated_text"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(gr.Results) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return gr.Results[0].GeneratedText, nil
}
