// Package advisor orchestrates one conversational turn: it routes the
// incoming message to an intent, runs the matching response strategy, and
// streams the answer while keeping session state consistent.
package advisor

import (
	"context"
	"strings"

	"github.com/nexuslab/nexus/internal/llm"
	"github.com/nexuslab/nexus/internal/log"
	"github.com/nexuslab/nexus/internal/router"
	"github.com/nexuslab/nexus/internal/session"
)

// Router classifies a turn. Implemented by router.Router.
type Router interface {
	Route(ctx context.Context, query string, history []llm.Message) router.Decision
}

// Retriever produces a best-effort context block for a query.
// Implemented by rag.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string) string
}

// Streamer produces a finite sequence of text fragments for a message
// payload. Implemented by llm.Chain.
type Streamer interface {
	Stream(ctx context.Context, messages []llm.Message) <-chan string
}

// Advisor glues router, retriever and provider chains into the per-message
// state machine.
type Advisor struct {
	router    Router
	retriever Retriever
	chat      Streamer // retrieval + conversation strategies
	search    Streamer // web-informed guidance strategy
	logger    log.Logger
}

// New creates an Advisor.
func New(rt Router, retriever Retriever, chat, search Streamer, logger log.Logger) *Advisor {
	return &Advisor{
		router:    rt,
		retriever: retriever,
		chat:      chat,
		search:    search,
		logger:    logger,
	}
}

// Respond handles one user message for the given session and returns the
// response as a finite stream of text fragments.
//
// The session's turn lock is held from the first state read until history is
// appended, so concurrent requests for one session are processed strictly in
// sequence. The user message and the full assistant output are appended to
// history together, never individually.
func (a *Advisor) Respond(ctx context.Context, sess *session.Session, message string) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)
		sess.Lock()
		defer sess.Unlock()

		// Pending clarification: the whole message is the ambition. The
		// router is not consulted for this turn.
		if sess.AwaitingAmbition() {
			sess.SetAmbition(message)
			sess.AppendTurn(message, AmbitionAck)
			a.logger.Debug("ambition recorded")
			emit(ctx, out, AmbitionAck)
			return
		}

		history := sess.History()
		decision := a.router.Route(ctx, message, history)
		a.logger.Debug("turn routed", "intent", decision.Intent)

		switch decision.Intent {
		case router.IntentGuidance:
			profile := sess.Profile()
			if profile.Ambition == "" {
				sess.MarkAwaitingAmbition()
				sess.AppendTurn(message, AmbitionQuestion)
				emit(ctx, out, AmbitionQuestion)
				return
			}
			a.streamTurn(ctx, out, sess, message, a.search, guidanceMessages(profile, message))

		case router.IntentRetrieval:
			contextBlock := a.retriever.Retrieve(ctx, decision.Query)
			a.streamTurn(ctx, out, sess, message, a.chat, retrievalMessages(history, contextBlock, message))

		default:
			a.streamTurn(ctx, out, sess, message, a.chat, conversationMessages(history, message))
		}
	}()

	return out
}

// streamTurn forwards a chain's fragments to the caller while accumulating
// the full text, then appends the completed turn to history. On client
// disconnect forwarding stops but whatever was generated is still committed
// as the turn's assistant output.
func (a *Advisor) streamTurn(ctx context.Context, out chan<- string, sess *session.Session, userText string, chain Streamer, messages []llm.Message) {
	var full strings.Builder
	fragments := chain.Stream(ctx, messages)

	forwarding := true
	for fragment := range fragments {
		full.WriteString(fragment)
		if !forwarding {
			continue
		}
		select {
		case out <- fragment:
		case <-ctx.Done():
			forwarding = false
		}
	}

	sess.AppendTurn(userText, full.String())
}

// emit delivers a fixed one-shot reply as a single fragment.
func emit(ctx context.Context, out chan<- string, text string) {
	select {
	case out <- text:
	case <-ctx.Done():
	}
}
