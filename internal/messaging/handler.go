package messaging

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/whatsapp-concierge/internal/routing"
	"github.com/wolfman30/whatsapp-concierge/internal/session"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

var twilioTracer = otel.Tracer("concierge.internal.messaging.twilio")

// ErrorReply is sent when the answering engine fails.
const ErrorReply = "Sorry, something went wrong. Please try again."

const (
	ReplyModeTwiML = "twiml"
	ReplyModeREST  = "rest"

	defaultReplyTimeout = 25 * time.Second
)

type messageRouter interface {
	Route(ctx context.Context, text string, verified bool) (routing.Result, error)
}

type inboundObserver interface {
	ObserveInbound(status string)
	ObserveWebhookLatency(seconds float64)
}

// HandlerConfig carries the transport settings of a Handler.
type HandlerConfig struct {
	// WebhookSecret enables X-Twilio-Signature validation when set.
	WebhookSecret string
	// PublicBaseURL overrides the scheme and host used to rebuild the signed URL.
	PublicBaseURL string
	ReplyMode     string
	ReplyTimeout  time.Duration
}

// Handler handles WhatsApp webhook requests.
type Handler struct {
	webhookSecret string
	publicBaseURL string
	replyMode     string
	replyTimeout  time.Duration

	router   messageRouter
	sessions session.Store
	sender   ReplySender
	metrics  inboundObserver
	logger   *logging.Logger

	inflight sync.WaitGroup
}

// NewHandler creates a new messaging handler. sender may be nil in twiml mode.
func NewHandler(cfg HandlerConfig, router messageRouter, sessions session.Store, sender ReplySender, metrics inboundObserver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if router == nil {
		panic("messaging: router cannot be nil")
	}
	if sessions == nil {
		panic("messaging: session store cannot be nil")
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.ReplyMode))
	if mode != ReplyModeREST {
		mode = ReplyModeTwiML
	}
	if mode == ReplyModeREST && sender == nil {
		panic("messaging: rest reply mode requires a sender")
	}
	timeout := cfg.ReplyTimeout
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	return &Handler{
		webhookSecret: cfg.WebhookSecret,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		replyMode:     mode,
		replyTimeout:  timeout,
		router:        router,
		sessions:      sessions,
		sender:        sender,
		metrics:       metrics,
		logger:        logger,
	}
}

// WhatsAppWebhook handles POST /whatsapp and POST /messaging/twilio/whatsapp.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := twilioTracer.Start(r.Context(), "messaging.twilio.whatsapp")
	defer span.End()
	if h.metrics != nil {
		defer func() { h.metrics.ObserveWebhookLatency(time.Since(start).Seconds()) }()
	}

	if h.webhookSecret != "" {
		if !ValidateTwilioSignature(r, h.webhookSecret, h.webhookURL(r)) {
			h.logger.Warn("invalid twilio signature", "path", r.URL.Path)
			h.observeInbound("unauthorized")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			span.RecordError(errors.New("invalid twilio signature"))
			return
		}
	}

	msg, err := ParseTwilioWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		h.observeInbound("bad_request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}
	if msg.From == "" {
		err := errors.New("missing sender")
		h.logger.Error("invalid twilio payload", "error", err, "message_sid", msg.MessageSid)
		h.observeInbound("bad_request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}
	span.SetAttributes(
		attribute.String("concierge.twilio.message_sid", msg.MessageSid),
		attribute.String("concierge.twilio.from", NormalizeE164(msg.From)),
	)

	if h.replyMode == ReplyModeREST {
		h.inflight.Add(1)
		go func() {
			defer h.inflight.Done()
			bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.replyTimeout)
			defer cancel()
			h.deliver(bg, msg, h.process(bg, msg))
		}()
		writeTwiML(w, nil)
		return
	}

	writeTwiML(w, h.process(ctx, msg))
}

// process loads the sender's verification state, routes the message and
// persists any change. It always returns at least one reply.
func (h *Handler) process(ctx context.Context, msg *InboundMessage) []string {
	verified, err := h.sessions.IsVerified(ctx, msg.From)
	if err != nil {
		h.logger.Warn("session lookup failed, treating sender as unverified", "error", err, "message_sid", msg.MessageSid)
		verified = false
	}

	res, err := h.router.Route(ctx, msg.Body, verified)
	if err != nil {
		h.logger.Error("failed to answer message", "error", err, "decision", res.Decision, "message_sid", msg.MessageSid)
		h.observeInbound("engine_error")
		return []string{ErrorReply}
	}

	switch {
	case res.Decision == routing.DecisionCredentialsAccepted:
		if err := h.sessions.MarkVerified(ctx, msg.From); err != nil {
			h.logger.Warn("failed to persist verification", "error", err, "message_sid", msg.MessageSid)
		}
	case verified && !res.Verified:
		if err := h.sessions.Revoke(ctx, msg.From); err != nil {
			h.logger.Warn("failed to revoke verification", "error", err, "message_sid", msg.MessageSid)
		}
	}

	h.logger.Info("whatsapp message handled",
		"message_sid", msg.MessageSid,
		"decision", res.Decision,
		"verified", res.Verified,
		"replies", len(res.Replies),
	)
	h.observeInbound("ok")
	return res.Replies
}

func (h *Handler) deliver(ctx context.Context, msg *InboundMessage, replies []string) {
	for _, body := range replies {
		err := h.sender.SendReply(ctx, OutboundReply{
			To:         msg.From,
			From:       msg.To,
			Body:       body,
			MessageSid: msg.MessageSid,
		})
		if err != nil {
			h.logger.Error("failed to deliver whatsapp reply", "error", err, "message_sid", msg.MessageSid)
			return
		}
	}
}

// Wait blocks until replies still being delivered in the background are done.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// HealthCheck returns a simple health check response.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) observeInbound(status string) {
	if h.metrics != nil {
		h.metrics.ObserveInbound(status)
	}
}

func (h *Handler) webhookURL(r *http.Request) string {
	if h.publicBaseURL != "" && r.URL != nil {
		return h.publicBaseURL + r.URL.RequestURI()
	}
	return buildAbsoluteURL(r)
}

type twimlResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

func writeTwiML(w http.ResponseWriter, replies []string) {
	body, err := xml.Marshal(twimlResponse{Messages: replies})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
