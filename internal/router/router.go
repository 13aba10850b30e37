// Package router classifies a user turn into an intent and, for retrieval,
// rewrites the query into a search-optimized form.
//
// The language model behind the classification is treated as an opaque,
// possibly-unreliable component: all parsing, validation and fallback on
// malformed output happens here. A routing failure never aborts a turn; it
// downgrades it to plain conversation.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexuslab/nexus/internal/llm"
	"github.com/nexuslab/nexus/internal/log"
)

// Intent classifies a user turn.
type Intent string

// Recognized intents.
const (
	// IntentRetrieval: the query seeks specific factual information expected
	// to exist in local documents (course details, prerequisites).
	IntentRetrieval Intent = "retrieval"

	// IntentGuidance: the query is broad, open-ended or future-facing and
	// benefits from current external information (careers, trends).
	IntentGuidance Intent = "guidance_search"

	// IntentConversation: greetings, social chat, everything else.
	IntentConversation Intent = "conversation"
)

// Decision is the routing outcome for one turn. Query is a search-optimized
// rewrite, populated only for IntentRetrieval; for other intents it carries
// the original query unchanged.
type Decision struct {
	Intent Intent
	Query  string
}

// emptyHistorySentinel stands in for the transcript when there is none.
const emptyHistorySentinel = "No previous conversation."

const systemPrompt = `You are an expert query analysis agent. Your task is to analyze a user's query and conversation history, then output a JSON object with two fields: 'intent' and 'query'.

1. 'intent': Classify the query as one of:
   - "retrieval": the query seeks specific factual information that exists in local university documents (course details, prerequisites, credit hours, instructors).
   - "guidance_search": the query is broad, open-ended or future-facing and benefits from current external information (careers, trends, "what's best for me").
   - "conversation": greetings, social chat, anything not matching the above.
2. 'query': If 'intent' is "retrieval", rewrite the user's query into a concise form optimized for vector search; otherwise null.

IMPORTANT: Output must be a single valid JSON object.`

// Completer issues a single non-streaming structured-output completion.
// Implemented by llm.Ollama.
type Completer interface {
	CompleteJSON(ctx context.Context, messages []llm.Message) (string, error)
}

// Router classifies turns via a structured-output model call.
type Router struct {
	completer Completer
	logger    log.Logger
}

// New creates a Router over the given completer.
func New(completer Completer, logger log.Logger) *Router {
	return &Router{completer: completer, logger: logger}
}

// routingOutput mirrors the JSON object the model is instructed to emit.
// Intent is a raw string and Query a pointer so that absent or null fields
// are distinguishable from empty ones.
type routingOutput struct {
	Intent *string `json:"intent"`
	Query  *string `json:"query"`
}

// Route classifies query given the conversation history. Any transport
// error, malformed JSON, or missing/unrecognized field yields the fallback
// Decision{IntentConversation, query}.
func (r *Router) Route(ctx context.Context, query string, history []llm.Message) Decision {
	fallback := Decision{Intent: IntentConversation, Query: query}

	messages := []llm.Message{
		llm.System(systemPrompt),
		llm.User(fmt.Sprintf("Conversation History:\n%s\n\nUser Query: %q\n\nYour JSON Output:", FormatHistory(history), query)),
	}

	raw, err := r.completer.CompleteJSON(ctx, messages)
	if err != nil {
		r.logger.Warn("routing call failed, falling back to conversation", "error", err)
		return fallback
	}

	var out routingOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		r.logger.Warn("routing output not valid JSON, falling back to conversation", "error", err)
		return fallback
	}
	if out.Intent == nil {
		r.logger.Warn("routing output missing intent, falling back to conversation")
		return fallback
	}

	switch Intent(*out.Intent) {
	case IntentRetrieval:
		refined := query
		if out.Query != nil && *out.Query != "" {
			refined = *out.Query
		}
		return Decision{Intent: IntentRetrieval, Query: refined}
	case IntentGuidance:
		return Decision{Intent: IntentGuidance, Query: query}
	case IntentConversation:
		return fallback
	default:
		r.logger.Warn("routing output has unrecognized intent, falling back to conversation",
			"intent", *out.Intent)
		return fallback
	}
}

// FormatHistory flattens history into a transcript of "role: content" lines,
// oldest first, or a fixed sentinel when empty.
func FormatHistory(history []llm.Message) string {
	if len(history) == 0 {
		return emptyHistorySentinel
	}
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
