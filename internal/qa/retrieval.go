package qa

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

var retrievalTracer = otel.Tracer("concierge.internal.qa.retrieval")

const defaultSystemPrompt = "You are a product support assistant for a manufacturer. Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer. Keep answers short enough for a WhatsApp message."

// RetrievalQA answers by stuffing the top retrieved documents into a single prompt.
type RetrievalQA struct {
	retriever Retriever
	llm       LLMClient
	topK      int
	system    string
	maxTokens int32
	logger    *logging.Logger
}

type RetrievalOption func(*RetrievalQA)

func WithTopK(k int) RetrievalOption {
	return func(r *RetrievalQA) {
		if k > 0 {
			r.topK = k
		}
	}
}

func WithSystemPrompt(prompt string) RetrievalOption {
	return func(r *RetrievalQA) {
		if strings.TrimSpace(prompt) != "" {
			r.system = prompt
		}
	}
}

func WithMaxTokens(n int32) RetrievalOption {
	return func(r *RetrievalQA) { r.maxTokens = n }
}

func WithRetrievalLogger(logger *logging.Logger) RetrievalOption {
	return func(r *RetrievalQA) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRetrievalQA(retriever Retriever, llm LLMClient, opts ...RetrievalOption) *RetrievalQA {
	if retriever == nil {
		panic("qa: retriever cannot be nil")
	}
	if llm == nil {
		panic("qa: llm client cannot be nil")
	}
	r := &RetrievalQA{
		retriever: retriever,
		llm:       llm,
		topK:      4,
		system:    defaultSystemPrompt,
		maxTokens: 512,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Answer implements Engine.
func (r *RetrievalQA) Answer(ctx context.Context, query string) (string, error) {
	ctx, span := retrievalTracer.Start(ctx, "qa.retrieval.answer")
	defer span.End()

	docs, err := r.retriever.Query(ctx, query, r.topK)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("qa: retrieve context: %w", err)
	}
	span.SetAttributes(attribute.Int("concierge.qa.documents", len(docs)))

	resp, err := r.llm.Complete(ctx, LLMRequest{
		System:      []string{buildContextPrompt(r.system, docs)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: query}},
		MaxTokens:   r.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("qa: complete: %w", err)
	}
	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		span.RecordError(ErrEmptyAnswer)
		return "", ErrEmptyAnswer
	}
	r.logger.Debug("retrieval answer generated",
		"documents", len(docs),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return answer, nil
}

func buildContextPrompt(system string, docs []string) string {
	var b strings.Builder
	b.WriteString(system)
	if len(docs) == 0 {
		return b.String()
	}
	b.WriteString("\n\n")
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(doc))
	}
	return b.String()
}
