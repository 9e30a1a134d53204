package bootstrap

import (
	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/messaging"
	"github.com/wolfman30/whatsapp-concierge/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-concierge/internal/routing"
	"github.com/wolfman30/whatsapp-concierge/internal/session"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// BuildReplySender creates the Twilio REST sender used in rest reply mode.
// It returns nil and a reason when the mode or credentials do not call for one.
func BuildReplySender(cfg *appconfig.Config, m *metrics.ConciergeMetrics, logger *logging.Logger) (messaging.ReplySender, string) {
	if cfg == nil {
		return nil, "missing config"
	}
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.UseRESTReplies() {
		return nil, "twiml reply mode"
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return nil, "twilio credentials missing"
	}
	if cfg.TwilioWhatsAppFrom == "" {
		// Replies reuse the inbound To address, so this is only a warning.
		logger.Warn("TWILIO_WHATSAPP_FROM not set; replies will use the inbound number")
	}

	var opts []messaging.SenderOption
	if m != nil {
		opts = append(opts, messaging.WithOutboundMetrics(m))
	}
	return messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger, opts...), ""
}

// BuildMessagingHandler wires the webhook handler. In rest mode without a
// usable sender it degrades to inline TwiML replies.
func BuildMessagingHandler(cfg *appconfig.Config, router *routing.Router, sessions session.Store, m *metrics.ConciergeMetrics, logger *logging.Logger) *messaging.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	sender, reason := BuildReplySender(cfg, m, logger)
	mode := cfg.ReplyMode
	if cfg.UseRESTReplies() && sender == nil {
		logger.Warn("rest reply mode unavailable; falling back to twiml", "reason", reason)
		mode = messaging.ReplyModeTwiML
	}

	handlerCfg := messaging.HandlerConfig{
		WebhookSecret: cfg.TwilioWebhookSecret,
		PublicBaseURL: cfg.PublicBaseURL,
		ReplyMode:     mode,
		ReplyTimeout:  cfg.AnswerTimeout,
	}
	if cfg.TwilioWebhookSecret == "" {
		logger.Warn("TWILIO_WEBHOOK_SECRET not set; webhook signatures are not checked")
	}
	if m == nil {
		return messaging.NewHandler(handlerCfg, router, sessions, sender, nil, logger)
	}
	return messaging.NewHandler(handlerCfg, router, sessions, sender, m, logger)
}
