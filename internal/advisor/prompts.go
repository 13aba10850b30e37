package advisor

import (
	"fmt"

	"github.com/nexuslab/nexus/internal/llm"
	"github.com/nexuslab/nexus/internal/session"
)

// Fixed one-shot replies for the ambition-collection flow. These are emitted
// without any provider call.
const (
	// AmbitionQuestion is the clarifying question asked when a guidance query
	// arrives before the user's ambition is known.
	AmbitionQuestion = "That's an important question. To give you the best guidance, could you tell me a bit about your career ambitions or what you hope to achieve?"

	// AmbitionAck acknowledges a stored ambition.
	AmbitionAck = "Thank you for sharing. I've made a note of that. Now, what was your original question about your future?"
)

// NoContextSentinel replaces the context section of the retrieval prompt when
// the store returned nothing.
const NoContextSentinel = "No context was found for this query."

const retrievalSystemPrompt = `You are 'Nexus,' the AI Academic Counsellor for Sai University. Your task is to answer student questions based on the provided course catalog context. The context contains information about courses, prerequisites, credit hours, and instructors.
Answer ONLY from the provided context. If the answer is not in the context, state that you don't have enough information and suggest the student contact a human advisor.
Format your response using clear Markdown (headings, bold, lists).
IMPORTANT: Do not include any links in your response. Provide text-only answers.`

const guidanceSystemPrompt = `You are a helpful AI career and academic assistant. Provide a concise, web-informed summary. Format with simple Markdown (headings, lists). Do not include links.`

const conversationPersona = `You are Nexus, a friendly and helpful AI academic counsellor for Sai University. Please use simple Markdown to format your responses where appropriate (e.g., lists, bold text). IMPORTANT: Do not include any links in your response. Provide text-only answers.`

// retrievalMessages builds the retrieval-strategy payload:
// [system] + full history + [user message wrapping context and question].
func retrievalMessages(history []llm.Message, contextBlock, question string) []llm.Message {
	if contextBlock == "" {
		contextBlock = NoContextSentinel
	}
	user := fmt.Sprintf("Context from university documents:\n---\n%s\n---\nBased on the context above and our prior conversation, please answer my last question: %q", contextBlock, question)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.System(retrievalSystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, llm.User(user))
	return messages
}

// guidanceMessages builds the guidance-strategy payload. History is
// deliberately excluded: the profile substitutes for conversational context,
// and only the current question travels with it.
func guidanceMessages(profile session.Profile, question string) []llm.Message {
	major := profile.Major
	if major == "" {
		major = "Not specified"
	}
	ambition := profile.Ambition
	if ambition == "" {
		ambition = "Not specified"
	}
	user := fmt.Sprintf("- My Major: %s\n- My Ambition: %s\n\nMy Question: %s", major, ambition, question)

	return []llm.Message{
		llm.System(guidanceSystemPrompt),
		llm.User(user),
	}
}

// conversationMessages builds the open-conversation payload:
// [persona] + full history + [user message].
func conversationMessages(history []llm.Message, question string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.System(conversationPersona))
	messages = append(messages, history...)
	messages = append(messages, llm.User(question))
	return messages
}
