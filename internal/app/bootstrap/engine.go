package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/langchain"
	"github.com/wolfman30/whatsapp-concierge/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-concierge/internal/qa"
	"github.com/wolfman30/whatsapp-concierge/internal/routing"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// AWSLoader resolves the AWS SDK configuration on demand so only Bedrock
// setups pay for it.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// EngineDeps are the shared clients an answering engine may use.
type EngineDeps struct {
	Redis   *redis.Client
	AWS     AWSLoader
	Metrics *metrics.ConciergeMetrics
	Logger  *logging.Logger
}

// BuildAnswerEngine wires the configured answering engine. The layers from
// the inside out are: engine, metrics, timeout, redis answer cache. The
// returned cleanup releases provider connections and is never nil.
func BuildAnswerEngine(ctx context.Context, cfg *appconfig.Config, deps EngineDeps) (qa.Engine, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		engine  qa.Engine
		cleanup = noop
		name    = cfg.AnswerEngine
	)
	switch cfg.AnswerEngine {
	case "langchain":
		client, err := langchain.NewClient(langchain.Config{
			BaseURL: cfg.LangChainBaseURL,
			APIKey:  cfg.LangChainAPIKey,
			Timeout: cfg.LangChainTimeout,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: langchain client: %w", err)
		}
		engine = qa.NewLangChainEngine(client, cfg.LangChainCollection)
		logger.Info("answer engine ready", "engine", name, "collection", cfg.LangChainCollection)
	case "retrieval", "":
		name = "retrieval"
		llm, closeLLM, err := buildLLM(ctx, cfg, deps)
		if err != nil {
			return nil, noop, err
		}
		cleanup = closeLLM
		embedder, err := buildEmbedder(ctx, cfg, deps)
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		docs, err := qa.LoadDocuments(cfg.KnowledgeDir)
		if err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("bootstrap: load knowledge: %w", err)
		}
		if len(docs) == 0 {
			cleanup()
			return nil, noop, fmt.Errorf("bootstrap: no documents found in %s", cfg.KnowledgeDir)
		}
		index := qa.NewMemoryIndex(embedder)
		if err := index.AddDocuments(ctx, docs); err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("bootstrap: index knowledge: %w", err)
		}
		engine = qa.NewRetrievalQA(index, llm,
			qa.WithTopK(cfg.RetrievalTopK),
			qa.WithRetrievalLogger(logger),
		)
		logger.Info("answer engine ready", "engine", name, "provider", cfg.LLMProvider, "chunks", index.Len())
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown answer engine %q", cfg.AnswerEngine)
	}

	if deps.Metrics != nil {
		engine = qa.Instrument(engine, name, deps.Metrics)
	}
	engine = qa.Bounded(engine, cfg.AnswerTimeout)
	if deps.Redis != nil && cfg.AnswerCacheTTL > 0 {
		engine = qa.NewCachedEngine(engine, deps.Redis, cfg.AnswerCacheTTL, logger)
	}
	return engine, cleanup, nil
}

// BuildMessageRouter wires the routing rules with the configured shared credentials.
func BuildMessageRouter(cfg *appconfig.Config, engine routing.Answerer, m *metrics.ConciergeMetrics, logger *logging.Logger) *routing.Router {
	opts := []routing.Option{
		routing.WithVerifier(routing.NewSharedCredentialVerifier(cfg.ClientID, cfg.ClientPassword)),
		routing.WithLogger(logger),
	}
	if m != nil {
		opts = append(opts, routing.WithMetrics(m))
	}
	return routing.New(engine, opts...)
}

func buildLLM(ctx context.Context, cfg *appconfig.Config, deps EngineDeps) (qa.LLMClient, func(), error) {
	noop := func() {}
	switch cfg.LLMProvider {
	case "openai", "":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, noop, errors.New("bootstrap: OPENAI_API_KEY is required for the openai provider")
		}
		return qa.NewOpenAIClient(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel), noop, nil
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, noop, errors.New("bootstrap: BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		client, err := bedrockClient(ctx, deps)
		if err != nil {
			return nil, noop, err
		}
		return qa.NewBedrockClient(client, cfg.BedrockModelID), noop, nil
	case "gemini":
		client, err := qa.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown llm provider %q", cfg.LLMProvider)
	}
}

// buildEmbedder uses Bedrock Titan for the bedrock provider and OpenAI
// otherwise. Gemini deployments embed with OpenAI when a key is present.
func buildEmbedder(ctx context.Context, cfg *appconfig.Config, deps EngineDeps) (qa.Embedder, error) {
	if cfg.LLMProvider != "bedrock" && strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		return qa.NewOpenAIEmbedder(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIEmbeddingModel), nil
	}
	if strings.TrimSpace(cfg.BedrockEmbeddingModelID) == "" {
		return nil, errors.New("bootstrap: no embedding model configured")
	}
	client, err := bedrockClient(ctx, deps)
	if err != nil {
		return nil, err
	}
	return qa.NewBedrockEmbedder(client, cfg.BedrockEmbeddingModelID), nil
}

func bedrockClient(ctx context.Context, deps EngineDeps) (*bedrockruntime.Client, error) {
	if deps.AWS == nil {
		return nil, errors.New("bootstrap: aws config loader is required for bedrock")
	}
	awsCfg, err := deps.AWS(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}
