package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TextCompleter is the single-message completion call both the challenge
// generator and the judge depend on. Kept small so tests can substitute a
// deterministic implementation.
type TextCompleter interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// ImageGenerator produces one image for a prompt. Provider responses come in
// two shapes (hosted URL or inline base64); implementations must normalize
// into an ImageResult before returning.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, model, prompt string) (ImageResult, error)
}

// ImageResult is the normalized image-generation outcome: exactly one of
// URL or Data is set.
type ImageResult struct {
	URL  string
	Data []byte
}

// Hosted reports whether the provider returned a hosted URL rather than
// inline bytes.
func (r ImageResult) Hosted() bool {
	return r.URL != ""
}

// TogetherClient talks to Together's OpenAI-compatible chat-completions and
// image-generation endpoints.
type TogetherClient struct {
	APIKey     string
	BaseURL    string
	httpClient *http.Client
}

func NewTogetherClient(apiKey, baseURL string) *TogetherClient {
	return &TogetherClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a single user-role message and returns the first choice's
// content. No retries; a failed call is the caller's cue to fall back.
func (c *TogetherClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error: %s", string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("unexpected response format")
	}
	return parsed.Choices[0].Message.Content, nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	Steps  int    `json:"steps"`
}

// imageResponse covers both shapes the provider returns: a hosted url or an
// inline base64 payload.
type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage requests one 1024x1024 image and normalizes the response.
func (c *TogetherClient) GenerateImage(ctx context.Context, model, prompt string) (ImageResult, error) {
	reqBody := imageRequest{
		Model:  model,
		Prompt: prompt,
		Size:   "1024x1024",
		Steps:  8,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/images/generations", bytes.NewBuffer(payload))
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ImageResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ImageResult{}, fmt.Errorf("API error: %s", string(body))
	}

	var parsed imageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ImageResult{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return ImageResult{}, fmt.Errorf("unexpected response format")
	}
	if parsed.Data[0].URL != "" {
		return ImageResult{URL: parsed.Data[0].URL}, nil
	}
	if parsed.Data[0].B64JSON != "" {
		raw, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
		if err != nil {
			return ImageResult{}, fmt.Errorf("failed to decode image data: %w", err)
		}
		return ImageResult{Data: raw}, nil
	}
	return ImageResult{}, fmt.Errorf("image response had neither url nor data")
}
