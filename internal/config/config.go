package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Twilio WhatsApp transport
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWebhookSecret string
	TwilioWhatsAppFrom  string
	ReplyMode           string

	// Shared client credentials and how long a successful check lasts
	ClientID        string
	ClientPassword  string
	VerificationTTL time.Duration

	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Answering engine
	AnswerEngine   string
	AnswerTimeout  time.Duration
	AnswerCacheTTL time.Duration
	KnowledgeDir   string
	RetrievalTopK  int

	LLMProvider             string
	OpenAIAPIKey            string
	OpenAIModel             string
	OpenAIEmbeddingModel    string
	BedrockModelID          string
	BedrockEmbeddingModelID string
	GeminiAPIKey            string
	GeminiModel             string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	LangChainBaseURL    string
	LangChainAPIKey     string
	LangChainTimeout    time.Duration
	LangChainCollection string

	MetricsEnabled bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),
		TwilioWhatsAppFrom:  getEnv("TWILIO_WHATSAPP_FROM", ""),
		ReplyMode:           strings.ToLower(strings.TrimSpace(getEnv("REPLY_MODE", "twiml"))),

		ClientID:        getEnv("CLIENT_ID", "8448298087"),
		ClientPassword:  getEnv("CLIENT_PASSWORD", "123456"),
		VerificationTTL: getEnvAsDuration("VERIFICATION_TTL", 24*time.Hour),

		SessionStore:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "redis"))),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AnswerEngine:   strings.ToLower(strings.TrimSpace(getEnv("ANSWER_ENGINE", "retrieval"))),
		AnswerTimeout:  getEnvAsDuration("ANSWER_TIMEOUT", 25*time.Second),
		AnswerCacheTTL: getEnvAsDuration("ANSWER_CACHE_TTL", time.Hour),
		KnowledgeDir:   getEnv("KNOWLEDGE_DIR", "knowledge"),
		RetrievalTopK:  getEnvAsInt("RETRIEVAL_TOP_K", 4),

		LLMProvider:             strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:             getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIEmbeddingModel:    getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),
		BedrockEmbeddingModelID: getEnv("BEDROCK_EMBEDDING_MODEL_ID", "amazon.titan-embed-text-v2:0"),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		LangChainBaseURL:    getEnv("LANGCHAIN_BASE_URL", ""),
		LangChainAPIKey:     getEnv("LANGCHAIN_API_KEY", ""),
		LangChainTimeout:    getEnvAsDuration("LANGCHAIN_TIMEOUT", 20*time.Second),
		LangChainCollection: getEnv("LANGCHAIN_COLLECTION", "catalog"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}
}

// UseRESTReplies reports whether replies are pushed through the Twilio REST
// API instead of being returned inline as TwiML.
func (c *Config) UseRESTReplies() bool {
	return c.ReplyMode == "rest"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
