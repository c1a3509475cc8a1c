package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"

// IAMClient exchanges a long-lived IBM Cloud API key for a bearer token.
// Tokens are not cached; every call hits the identity provider.
type IAMClient struct {
	url    string
	client *http.Client
	retry  RetryPolicy
}

func NewIAMClient(tokenURL string, client *http.Client, retry RetryPolicy) *IAMClient {
	if client == nil {
		client = &http.Client{}
	}
	return &IAMClient{url: tokenURL, client: client, retry: retry}
}

// Token returns a fresh access token for apiKey. Any non-200 answer from the
// identity provider is an *AuthError wrapping ErrAuthenticationFailed.
func (c *IAMClient) Token(ctx context.Context, apiKey string) (string, error) {
	if apiKey == "" {
		return "", &AuthError{Body: "api key is empty"}
	}
	return retry(ctx, "iam.token", c.retry, func() (string, error) {
		return c.fetch(ctx, apiKey)
	})
}

func (c *IAMClient) fetch(ctx context.Context, apiKey string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", apiKeyGrantType)
	form.Set("apikey", apiKey)

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("iam request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Status: resp.StatusCode, Body: string(raw)}
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return tr.AccessToken, nil
}
