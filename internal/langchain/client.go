package langchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config describes how to reach the LangChain orchestrator.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

const maxResponseBytes = 1 << 20

// Client proxies question-answering and knowledge ingestion to the orchestrator service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient validates the configuration and returns a ready-to-use client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("langchain: base URL required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// AnswerRequest is a single retrieval QA question.
type AnswerRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
}

// AnswerResponse is the orchestrator's RetrievalQA result.
type AnswerResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources,omitempty"`
	LatencyMS int64    `json:"latency_ms,omitempty"`
}

// StatusError reports a non-2xx reply from the orchestrator.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("langchain: orchestrator returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Answer runs the orchestrator's retrieval chain for one query.
func (c *Client) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("langchain: query required")
	}
	var out AnswerResponse
	if err := c.post(ctx, "/v1/qa", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type knowledgeRequest struct {
	Documents []string `json:"documents"`
}

// AddKnowledge enqueues documents for vector store ingestion. An empty batch
// is a no-op.
func (c *Client) AddKnowledge(ctx context.Context, collection string, docs []string) error {
	if strings.TrimSpace(collection) == "" {
		return errors.New("langchain: collection required")
	}
	if len(docs) == 0 {
		return nil
	}
	return c.post(ctx, "/v1/knowledge/"+url.PathEscape(collection), knowledgeRequest{Documents: docs}, nil)
}

// post sends payload as JSON and decodes the reply into out when out is non-nil.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("langchain: encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("langchain: build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("langchain: call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(body)
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("langchain: decode %s: %w", path, err)
	}
	return nil
}
