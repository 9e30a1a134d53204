package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

var twilioSendTracer = otel.Tracer("concierge.internal.messaging.twilio_send")

const (
	defaultTwilioAPIBase = "https://api.twilio.com"
	maxSendAttempts      = 3
)

// OutboundReply is a single WhatsApp message to deliver.
type OutboundReply struct {
	To   string
	From string
	Body string
	// MessageSid is the inbound message this replies to, for logs only.
	MessageSid string
}

// ReplySender delivers replies outside of the webhook response.
type ReplySender interface {
	SendReply(ctx context.Context, msg OutboundReply) error
}

type outboundObserver interface {
	ObserveOutbound(status string)
}

// TwilioSender posts WhatsApp messages using Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	apiBase    string
	httpClient *http.Client
	metrics    outboundObserver
	logger     *logging.Logger
	pause      func(ctx context.Context, d time.Duration)
}

// SenderOption customizes a TwilioSender.
type SenderOption func(*TwilioSender)

// WithAPIBase points the sender at a different Twilio API host.
func WithAPIBase(base string) SenderOption {
	return func(s *TwilioSender) {
		if base != "" {
			s.apiBase = strings.TrimRight(base, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *TwilioSender) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func WithOutboundMetrics(m outboundObserver) SenderOption {
	return func(s *TwilioSender) { s.metrics = m }
}

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(accountSID, authToken, defaultFrom string, logger *logging.Logger, opts ...SenderOption) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	s := &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       defaultFrom,
		apiBase:    defaultTwilioAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		pause:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ReplySender = (*TwilioSender)(nil)

// SendReply dispatches a single WhatsApp message, retrying transient failures.
func (s *TwilioSender) SendReply(ctx context.Context, msg OutboundReply) error {
	err := s.send(ctx, msg)
	if s.metrics != nil {
		status := "sent"
		if err != nil {
			status = "failed"
		}
		s.metrics.ObserveOutbound(status)
	}
	return err
}

func (s *TwilioSender) send(ctx context.Context, msg OutboundReply) error {
	if s.accountSID == "" || s.authToken == "" {
		return errors.New("messaging: twilio credentials missing")
	}
	to := WhatsAppAddress(msg.To)
	if to == "" {
		return errors.New("messaging: to required")
	}
	from := msg.From
	if from == "" {
		from = s.from
	}
	from = WhatsAppAddress(from)
	if from == "" {
		return errors.New("messaging: from required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return errors.New("messaging: body required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("concierge.to", to),
		attribute.String("concierge.inbound_sid", msg.MessageSid),
	)

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", from)
	payload.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.apiBase, s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID string `json:"sid"`
				}
				_ = json.Unmarshal(body, &parsed)
				s.logger.Info("twilio whatsapp sent", "to", to, "sid", parsed.SID, "attempt", attempt)
				return nil
			}
			lastErr = fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		if attempt < maxSendAttempts {
			s.pause(ctx, time.Duration(200+rand.Intn(300))*time.Millisecond)
		}
	}

	span.RecordError(lastErr)
	s.logger.Warn("twilio whatsapp send failed", "to", to, "error", lastErr)
	return fmt.Errorf("messaging: %w", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
