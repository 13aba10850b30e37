package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Ollama calls a local Ollama server's /api/chat endpoint. It implements
// Provider for streaming generation and additionally offers CompleteJSON for
// single-shot structured-output calls (used by the intent router).
//
// Ollama streams newline-delimited JSON objects rather than SSE frames; each
// line carries a message.content increment and a done flag.
type Ollama struct {
	host   string
	model  string
	client *http.Client
}

// NewOllama creates an Ollama provider for the given host and model.
func NewOllama(host, model string, timeout time.Duration) *Ollama {
	if host == "" {
		host = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Ollama{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (o *Ollama) Name() string { return "ollama" }

// Configured implements Provider. Ollama needs no credential; a local server
// is assumed reachable and unreachability surfaces as a request failure.
func (o *Ollama) Configured() bool { return true }

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Stream implements Provider.
func (o *Ollama) Stream(ctx context.Context, messages []Message) (<-chan Delta, error) {
	resp, err := o.post(ctx, ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan Delta)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				// Malformed line; skip without aborting the stream.
				continue
			}
			if chunk.Message.Content != "" {
				select {
				case ch <- Delta{Text: chunk.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				return
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

// CompleteJSON issues a non-streaming chat call with Ollama's JSON output
// format and returns the raw completion text. Used for structured-output
// classification where the caller parses and validates the JSON itself.
func (o *Ollama) CompleteJSON(ctx context.Context, messages []Message) (string, error) {
	resp, err := o.post(ctx, ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
		Format:   "json",
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return out.Message.Content, nil
}

func (o *Ollama) post(ctx context.Context, body ollamaChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return resp, nil
}
