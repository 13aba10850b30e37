package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAICompat streams from any OpenAI-compatible chat-completions endpoint
// (Perplexity, OpenRouter). The response body is Server-Sent-Event framing:
// "data: {json}" lines carrying choices[0].delta.content increments,
// terminated by "data: [DONE]" or stream close.
type OpenAICompat struct {
	name   string
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAICompat creates a provider for an OpenAI-compatible endpoint.
// name is used in logs; apiKey may be empty, in which case the provider
// reports itself unconfigured and the chain skips it.
func NewOpenAICompat(name, url, apiKey, model string, timeout time.Duration) *OpenAICompat {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAICompat{
		name:   name,
		url:    url,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (p *OpenAICompat) Name() string { return p.name }

// Configured implements Provider.
func (p *OpenAICompat) Configured() bool { return p.apiKey != "" }

type openAIChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream implements Provider.
func (p *OpenAICompat) Stream(ctx context.Context, messages []Message) (<-chan Delta, error) {
	payload, err := json.Marshal(openAIChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", p.name, resp.StatusCode)
	}

	ch := make(chan Delta)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}
			var chunk openAIStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				select {
				case ch <- Delta{Text: content}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case ch <- Delta{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}
