package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "REPLY_MODE", "CLIENT_ID", "CLIENT_PASSWORD", "VERIFICATION_TTL", "SESSION_STORE", "ANSWER_ENGINE", "OPENAI_MODEL", "LANGCHAIN_COLLECTION"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ClientID != "8448298087" || cfg.ClientPassword != "123456" {
		t.Fatalf("expected stock credentials, got %q/%q", cfg.ClientID, cfg.ClientPassword)
	}
	if cfg.VerificationTTL != 24*time.Hour {
		t.Fatalf("expected 24h verification ttl, got %s", cfg.VerificationTTL)
	}
	if cfg.SessionStore != "redis" {
		t.Fatalf("expected redis session store, got %s", cfg.SessionStore)
	}
	if cfg.AnswerEngine != "retrieval" {
		t.Fatalf("expected retrieval engine, got %s", cfg.AnswerEngine)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("expected gpt-4o, got %s", cfg.OpenAIModel)
	}
	if cfg.LangChainCollection != "catalog" {
		t.Fatalf("expected catalog collection, got %s", cfg.LangChainCollection)
	}
	if cfg.UseRESTReplies() {
		t.Fatal("expected twiml replies by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("REPLY_MODE", " REST ")
	t.Setenv("CLIENT_ID", "client-1")
	t.Setenv("VERIFICATION_TTL", "90m")
	t.Setenv("SESSION_STORE", "Memory")
	t.Setenv("RETRIEVAL_TOP_K", "7")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("METRICS_ENABLED", "false")
	cfg := Load()
	if cfg.Port != "5000" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.UseRESTReplies() {
		t.Fatalf("expected rest reply mode, got %q", cfg.ReplyMode)
	}
	if cfg.ClientID != "client-1" {
		t.Fatalf("expected client id override, got %s", cfg.ClientID)
	}
	if cfg.VerificationTTL != 90*time.Minute {
		t.Fatalf("expected ttl override, got %s", cfg.VerificationTTL)
	}
	if cfg.SessionStore != "memory" {
		t.Fatalf("expected normalized session store, got %s", cfg.SessionStore)
	}
	if cfg.RetrievalTopK != 7 {
		t.Fatalf("expected top k override, got %d", cfg.RetrievalTopK)
	}
	if !cfg.RedisTLS {
		t.Fatal("expected redis tls enabled")
	}
	if cfg.MetricsEnabled {
		t.Fatal("expected metrics disabled")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("VERIFICATION_TTL", "a day")
	t.Setenv("RETRIEVAL_TOP_K", "many")
	cfg := Load()
	if cfg.VerificationTTL != 24*time.Hour {
		t.Fatalf("expected fallback ttl, got %s", cfg.VerificationTTL)
	}
	if cfg.RetrievalTopK != 4 {
		t.Fatalf("expected fallback top k, got %d", cfg.RetrievalTopK)
	}
}
