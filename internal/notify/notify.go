// Package notify delivers notifications to external channels. Channel failures are
// reported as Result values and never returned as errors.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Channel names used in results, logs and metrics.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

var (
	// ErrMissingContact marks an enabled channel whose contact field is empty.
	ErrMissingContact = errors.New("missing contact")
	// ErrChannelNotConfigured marks an enabled channel with no sender wired.
	ErrChannelNotConfigured = errors.New("channel not configured")
)

// Result is the outcome of one delivery attempt.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Delivered builds a successful result.
func Delivered(messageID string) *Result {
	return &Result{Success: true, MessageID: messageID}
}

// Failed builds a failed result from err.
func Failed(err error) *Result {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &Result{Error: err.Error()}
}

// DispatchResult holds one entry per channel. A nil entry means the channel was not attempted.
type DispatchResult struct {
	Email    *Result `json:"email"`
	SMS      *Result `json:"sms"`
	WhatsApp *Result `json:"whatsapp"`
}

// Attempted reports how many channels were tried.
func (r DispatchResult) Attempted() int {
	n := 0
	for _, res := range []*Result{r.Email, r.SMS, r.WhatsApp} {
		if res != nil {
			n++
		}
	}
	return n
}

// Succeeded reports how many channels delivered.
func (r DispatchResult) Succeeded() int {
	n := 0
	for _, res := range []*Result{r.Email, r.SMS, r.WhatsApp} {
		if res != nil && res.Success {
			n++
		}
	}
	return n
}

// Recipient carries the contact details of the notification owner.
type Recipient struct {
	UserID string
	Name   string
	Email  string
	Phone  string
}

// Preferences are the per-user channel switches.
type Preferences struct {
	Email    bool
	SMS      bool
	WhatsApp bool
}

// Message is the channel-neutral content of a notification.
type Message struct {
	ID        string
	Type      string
	Title     string
	Body      string
	CreatedAt time.Time
}

// Branding customises rendered emails.
type Branding struct {
	AppName      string
	PrimaryColor string
	FooterText   string
	DashboardURL string
}

func (b Branding) withDefaults() Branding {
	if b.AppName == "" {
		b.AppName = "Life Admin"
	}
	if b.PrimaryColor == "" {
		b.PrimaryColor = "#2563eb"
	}
	if b.FooterText == "" {
		b.FooterText = fmt.Sprintf("You are receiving this because notifications are enabled in %s.", b.AppName)
	}
	return b
}

// EmailSender delivers a rendered email.
type EmailSender interface {
	SendEmail(ctx context.Context, to string, msg Message, branding Branding) *Result
}

// SMSSender delivers a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone string, msg Message) *Result
}

// WhatsAppSender delivers a WhatsApp message.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, phone string, msg Message) *Result
}
