package qa

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/wolfman30/whatsapp-concierge/internal/langchain"
)

var langchainTracer = otel.Tracer("concierge.internal.qa.langchain")

type langchainAnswerer interface {
	Answer(ctx context.Context, req langchain.AnswerRequest) (*langchain.AnswerResponse, error)
}

// LangChainEngine delegates answering to the remote LangChain orchestrator.
type LangChainEngine struct {
	client     langchainAnswerer
	collection string
}

func NewLangChainEngine(client langchainAnswerer, collection string) *LangChainEngine {
	if client == nil {
		panic("qa: langchain client cannot be nil")
	}
	return &LangChainEngine{client: client, collection: collection}
}

func (e *LangChainEngine) Answer(ctx context.Context, query string) (string, error) {
	ctx, span := langchainTracer.Start(ctx, "qa.langchain.answer")
	defer span.End()

	resp, err := e.client.Answer(ctx, langchain.AnswerRequest{Query: query, Collection: e.collection})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("qa: orchestrator answer: %w", err)
	}
	answer := strings.TrimSpace(resp.Answer)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}
