package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

const (
	VerifiedReply     = "✅ You are verified. Valid for 24 hours."
	WrongCredsReply   = "❌ Wrong Client ID or Password."
	VerifyFirstReply  = "🔒 Please enter your Client ID and Password to access this information."
	DefaultLeadReply  = "Production time is 90 days."
	modelLookupPrefix = "What is the price of model ending with "
)

// DefaultProtectedKeywords gate pricing and shipping documents behind verification.
var DefaultProtectedKeywords = []string{"price", "cost", "rate", "invoice", "packaging list", "packing list"}

var leadTimePhrases = []string{"production time", "lead time"}

// Decision names the branch that produced a Result.
type Decision string

const (
	DecisionCredentialsAccepted  Decision = "credentials_accepted"
	DecisionCredentialsRejected  Decision = "credentials_rejected"
	DecisionVerificationRequired Decision = "verification_required"
	DecisionModelLookup          Decision = "model_lookup"
	DecisionProtectedQuery       Decision = "protected_query"
	DecisionLeadTime             Decision = "lead_time"
	DecisionFallback             Decision = "fallback"
)

// UsesEngine reports whether the decision consults the answering engine.
func (d Decision) UsesEngine() bool {
	switch d {
	case DecisionModelLookup, DecisionProtectedQuery, DecisionFallback:
		return true
	}
	return false
}

// Answerer is the question-answering backend the router delegates to.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// AnswerFunc adapts a plain function to Answerer.
type AnswerFunc func(ctx context.Context, query string) (string, error)

func (f AnswerFunc) Answer(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

type decisionObserver interface {
	ObserveDecision(decision string)
}

// Result is the outcome of routing one inbound message. Replies are sent in order.
type Result struct {
	Replies  []string
	Verified bool
	Decision Decision
	// Query is the text sent to the answering engine, empty when none was consulted.
	Query string
}

// Router decides how each inbound message is answered. It holds no per-sender
// state and is safe for concurrent use.
type Router struct {
	engine    Answerer
	verifier  CredentialVerifier
	protected []string
	leadReply string
	metrics   decisionObserver
	logger    *logging.Logger
}

// Option customizes a Router.
type Option func(*Router)

// WithVerifier replaces the credential check.
func WithVerifier(v CredentialVerifier) Option {
	return func(r *Router) {
		if v != nil {
			r.verifier = v
		}
	}
}

// WithProtectedKeywords overrides the gated keyword list. Keywords are matched lowercased.
func WithProtectedKeywords(keywords ...string) Option {
	return func(r *Router) {
		out := make([]string, 0, len(keywords))
		for _, k := range keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				out = append(out, k)
			}
		}
		r.protected = out
	}
}

// WithLeadTimeReply overrides the canned production time answer.
func WithLeadTimeReply(reply string) Option {
	return func(r *Router) {
		if strings.TrimSpace(reply) != "" {
			r.leadReply = reply
		}
	}
}

func WithMetrics(m decisionObserver) Option {
	return func(r *Router) { r.metrics = m }
}

func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a Router around the answering engine.
func New(engine Answerer, opts ...Option) *Router {
	if engine == nil {
		panic("routing: engine cannot be nil")
	}
	r := &Router{
		engine:    engine,
		verifier:  NewSharedCredentialVerifier("8448298087", "123456"),
		protected: DefaultProtectedKeywords,
		leadReply: DefaultLeadReply,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route evaluates text against the decision rules in priority order. The only
// error it returns comes from the answering engine.
func (r *Router) Route(ctx context.Context, text string, verified bool) (Result, error) {
	res := r.route(ctx, text, verified)
	if r.metrics != nil {
		r.metrics.ObserveDecision(string(res.Decision))
	}
	if !res.Decision.UsesEngine() {
		r.logger.Debug("message routed", "decision", res.Decision, "verified", res.Verified)
		return res, nil
	}

	answer, err := r.engine.Answer(ctx, res.Query)
	if err != nil {
		r.logger.Warn("answering engine failed", "decision", res.Decision, "error", err)
		return res, fmt.Errorf("routing: answer %s: %w", res.Decision, err)
	}
	res.Replies = []string{answer}
	r.logger.Debug("message routed", "decision", res.Decision, "verified", res.Verified, "query_len", len(res.Query))
	return res, nil
}

// route picks the branch without calling the engine.
func (r *Router) route(_ context.Context, text string, verified bool) Result {
	switch r.verifier.Verify(text) {
	case CredentialsValid:
		return Result{Replies: []string{VerifiedReply}, Verified: true, Decision: DecisionCredentialsAccepted}
	case CredentialsInvalid:
		return Result{Replies: []string{WrongCredsReply}, Verified: false, Decision: DecisionCredentialsRejected}
	}

	lower := strings.ToLower(text)
	protected := containsAny(lower, r.protected)
	if protected && !verified {
		return Result{Replies: []string{VerifyFirstReply}, Verified: false, Decision: DecisionVerificationRequired}
	}

	trimmed := strings.TrimSpace(text)
	switch {
	case isModelCode(trimmed):
		return Result{
			Verified: verified,
			Decision: DecisionModelLookup,
			Query:    modelLookupPrefix + trimmed + "?",
		}
	case protected:
		code, ok := ExtractModelCode(text)
		if !ok {
			code = text
		}
		return Result{
			Verified: verified,
			Decision: DecisionProtectedQuery,
			Query:    "What is the " + lower + " for model ending with " + code + "?",
		}
	case containsAny(lower, leadTimePhrases):
		return Result{Replies: []string{r.leadReply}, Verified: verified, Decision: DecisionLeadTime}
	default:
		return Result{Verified: verified, Decision: DecisionFallback, Query: text}
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
