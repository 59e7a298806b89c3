package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/monitoring"
	"github.com/charlesng35/lifeadmin/pkg/logger"
)

// Dispatcher fans a message out to the channels a user enabled.
type Dispatcher struct {
	email    EmailSender
	sms      SMSSender
	whatsapp WhatsAppSender
	branding Branding
	log      *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEmailSender wires the email channel.
func WithEmailSender(sender EmailSender) Option {
	return func(d *Dispatcher) {
		d.email = sender
	}
}

// WithSMSSender wires the SMS channel.
func WithSMSSender(sender SMSSender) Option {
	return func(d *Dispatcher) {
		d.sms = sender
	}
}

// WithWhatsAppSender wires the WhatsApp channel.
func WithWhatsAppSender(sender WhatsAppSender) Option {
	return func(d *Dispatcher) {
		d.whatsapp = sender
	}
}

// WithBranding sets the branding passed to the email channel.
func WithBranding(branding Branding) Option {
	return func(d *Dispatcher) {
		d.branding = branding
	}
}

// WithLogger overrides the dispatcher logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDispatcher constructs a Dispatcher. Channels without a sender report "not configured".
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log: logger.WithModule("notify"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.branding = d.branding.withDefaults()
	return d
}

// Dispatch attempts every enabled channel independently. It never fails as a whole.
func (d *Dispatcher) Dispatch(ctx context.Context, to Recipient, msg Message, prefs Preferences) DispatchResult {
	if ctx == nil {
		ctx = context.Background()
	}

	var out DispatchResult
	if prefs.Email {
		out.Email = d.attempt(ChannelEmail, to.Email, "email address", d.email != nil, func(addr string) *Result {
			return d.email.SendEmail(ctx, addr, msg, d.branding)
		})
	}
	if prefs.SMS {
		out.SMS = d.attempt(ChannelSMS, to.Phone, "phone number", d.sms != nil, func(phone string) *Result {
			return d.sms.SendSMS(ctx, phone, msg)
		})
	}
	if prefs.WhatsApp {
		out.WhatsApp = d.attempt(ChannelWhatsApp, to.Phone, "phone number", d.whatsapp != nil, func(phone string) *Result {
			return d.whatsapp.SendWhatsApp(ctx, phone, msg)
		})
	}

	d.log.Debug("notification dispatched",
		zap.String("user_id", to.UserID),
		zap.String("notification_id", msg.ID),
		zap.Int("attempted", out.Attempted()),
		zap.Int("succeeded", out.Succeeded()),
	)
	return out
}

func (d *Dispatcher) attempt(channel, contact, field string, configured bool, send func(string) *Result) *Result {
	contact = strings.TrimSpace(contact)

	var res *Result
	switch {
	case contact == "":
		res = Failed(fmt.Errorf("%w: %s", ErrMissingContact, field))
	case !configured:
		res = Failed(fmt.Errorf("%s %w", channel, ErrChannelNotConfigured))
	default:
		res = send(contact)
		if res == nil {
			res = Failed(fmt.Errorf("%s sender returned no result", channel))
		}
	}

	outcome := "success"
	if !res.Success {
		outcome = "failure"
		d.log.Warn("notification channel failed",
			zap.String("channel", channel),
			zap.String("error", res.Error),
		)
	}
	monitoring.RecordDispatch(channel, outcome)
	return res
}
