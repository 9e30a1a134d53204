package routing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

type stubEngine struct {
	mu      sync.Mutex
	queries []string
	answer  string
	err     error
}

func (s *stubEngine) Answer(_ context.Context, query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return "", s.err
	}
	if s.answer != "" {
		return s.answer, nil
	}
	return "answer: " + query, nil
}

func (s *stubEngine) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

type recordingObserver struct {
	decisions []string
}

func (o *recordingObserver) ObserveDecision(decision string) {
	o.decisions = append(o.decisions, decision)
}

func newTestRouter(engine Answerer, opts ...Option) *Router {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(engine, opts...)
}

func TestRouteCredentialSubmission(t *testing.T) {
	for _, verified := range []bool{false, true} {
		engine := &stubEngine{}
		r := newTestRouter(engine)

		res, err := r.Route(context.Background(), "id 8448298087 pass 123456 price?", verified)
		require.NoError(t, err)
		assert.Equal(t, []string{VerifiedReply}, res.Replies)
		assert.True(t, res.Verified)
		assert.Equal(t, DecisionCredentialsAccepted, res.Decision)
		assert.Empty(t, engine.calls())
	}
}

func TestRoutePartialCredentials(t *testing.T) {
	for _, text := range []string{"8448298087", "my password is 123456", "ID:8448298087 what is the price"} {
		engine := &stubEngine{}
		r := newTestRouter(engine)

		res, err := r.Route(context.Background(), text, true)
		require.NoError(t, err)
		assert.Equal(t, []string{WrongCredsReply}, res.Replies, text)
		assert.False(t, res.Verified, "partial credentials must clear verification")
		assert.Empty(t, engine.calls())
	}
}

func TestRouteProtectedKeywordRequiresVerification(t *testing.T) {
	texts := []string{
		"What is the PRICE of AB12",
		"send me the invoice",
		"packing list please",
		"Packaging List for order 7",
		"how much does it cost",
		"shipping rate",
		"cost",
	}
	for _, text := range texts {
		engine := &stubEngine{}
		r := newTestRouter(engine)

		res, err := r.Route(context.Background(), text, false)
		require.NoError(t, err)
		assert.Equal(t, []string{VerifyFirstReply}, res.Replies, text)
		assert.False(t, res.Verified)
		assert.Equal(t, DecisionVerificationRequired, res.Decision)
		assert.Empty(t, engine.calls(), "engine must not be consulted for %q", text)
	}
}

func TestRouteModelCodeLookup(t *testing.T) {
	tests := []struct {
		text  string
		query string
	}{
		{"AB12", "What is the price of model ending with AB12?"},
		{"  ab12\n", "What is the price of model ending with ab12?"},
		{"9z9Z", "What is the price of model ending with 9z9Z?"},
		{"ÄÖ12", "What is the price of model ending with ÄÖ12?"},
	}
	for _, tt := range tests {
		for _, verified := range []bool{false, true} {
			engine := &stubEngine{answer: "It is $40."}
			r := newTestRouter(engine)

			res, err := r.Route(context.Background(), tt.text, verified)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.query}, engine.calls())
			assert.Equal(t, []string{"It is $40."}, res.Replies)
			assert.Equal(t, verified, res.Verified)
			assert.Equal(t, DecisionModelLookup, res.Decision)
		}
	}
}

func TestRouteFourLetterKeywordWhenVerifiedIsModelLookup(t *testing.T) {
	engine := &stubEngine{}
	r := newTestRouter(engine)

	res, err := r.Route(context.Background(), "cost", true)
	require.NoError(t, err)
	assert.Equal(t, DecisionModelLookup, res.Decision)
	assert.Equal(t, []string{"What is the price of model ending with cost?"}, engine.calls())
}

func TestRouteProtectedQueryWhenVerified(t *testing.T) {
	engine := &stubEngine{}
	r := newTestRouter(engine)

	res, err := r.Route(context.Background(), "what is the price for AB12", true)
	require.NoError(t, err)
	assert.Equal(t, DecisionProtectedQuery, res.Decision)
	assert.True(t, res.Verified)
	require.Len(t, engine.calls(), 1)
	assert.Equal(t, "What is the what is the price for ab12 for model ending with AB12?", engine.calls()[0])
	assert.Equal(t, []string{"answer: " + engine.calls()[0]}, res.Replies)
}

func TestRouteProtectedQueryWithoutCodeUsesRawText(t *testing.T) {
	engine := &stubEngine{}
	r := newTestRouter(engine)

	_, err := r.Route(context.Background(), "What is the Invoice status", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"What is the what is the invoice status for model ending with What is the Invoice status?"}, engine.calls())
}

func TestRouteLeadTime(t *testing.T) {
	for _, text := range []string{"what is the lead time", "Production Time for X9?", "LEAD TIME"} {
		engine := &stubEngine{}
		r := newTestRouter(engine)

		res, err := r.Route(context.Background(), text, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Production time is 90 days."}, res.Replies)
		assert.Equal(t, DecisionLeadTime, res.Decision)
		assert.Empty(t, engine.calls())
	}
}

func TestRouteProtectedBeatsLeadTime(t *testing.T) {
	engine := &stubEngine{}
	r := newTestRouter(engine)

	res, err := r.Route(context.Background(), "lead time and price", false)
	require.NoError(t, err)
	assert.Equal(t, DecisionVerificationRequired, res.Decision)
}

func TestRouteFallback(t *testing.T) {
	tests := []string{"hello there", "", "   ", "こんにちは", "AB1", "AB123", "AB-1"}
	for _, text := range tests {
		engine := &stubEngine{}
		r := newTestRouter(engine)

		res, err := r.Route(context.Background(), text, false)
		require.NoError(t, err)
		assert.Equal(t, DecisionFallback, res.Decision, "text %q", text)
		assert.Equal(t, []string{text}, engine.calls())
		assert.Equal(t, []string{"answer: " + text}, res.Replies)
	}
}

func TestRouteEngineErrorPropagates(t *testing.T) {
	boom := errors.New("upstream timeout")
	engine := &stubEngine{err: boom}
	r := newTestRouter(engine)

	res, err := r.Route(context.Background(), "hello there", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.Replies)
	assert.True(t, res.Verified)
}

func TestRouteIsIdempotent(t *testing.T) {
	engine := &stubEngine{}
	r := newTestRouter(engine)
	for _, text := range []string{"AB12", "what is the price for AB12", "hello", "lead time"} {
		first, err := r.Route(context.Background(), text, true)
		require.NoError(t, err)
		second, err := r.Route(context.Background(), text, true)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestRouteOptions(t *testing.T) {
	engine := &stubEngine{}
	observer := &recordingObserver{}
	r := newTestRouter(engine,
		WithVerifier(NewSharedCredentialVerifier("acme", "s3cret")),
		WithProtectedKeywords(" Discount ", ""),
		WithLeadTimeReply("Lead time is 6 weeks."),
		WithMetrics(observer),
	)

	res, err := r.Route(context.Background(), "acme s3cret", false)
	require.NoError(t, err)
	assert.True(t, res.Verified)

	res, err = r.Route(context.Background(), "any discount on price?", false)
	require.NoError(t, err)
	assert.Equal(t, DecisionVerificationRequired, res.Decision)

	res, err = r.Route(context.Background(), "what is the price?", false)
	require.NoError(t, err)
	assert.Equal(t, DecisionFallback, res.Decision, "price is no longer protected")

	res, err = r.Route(context.Background(), "lead time?", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lead time is 6 weeks."}, res.Replies)

	assert.Equal(t, []string{"credentials_accepted", "verification_required", "fallback", "lead_time"}, observer.decisions)
}

func TestNewPanicsWithoutEngine(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestDecisionUsesEngine(t *testing.T) {
	assert.True(t, DecisionModelLookup.UsesEngine())
	assert.True(t, DecisionProtectedQuery.UsesEngine())
	assert.True(t, DecisionFallback.UsesEngine())
	assert.False(t, DecisionLeadTime.UsesEngine())
	assert.False(t, DecisionCredentialsAccepted.UsesEngine())
}
