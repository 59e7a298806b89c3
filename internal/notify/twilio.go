package notify

import (
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

const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioConfig configures the WhatsApp channel.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Timeout    time.Duration
}

// TwilioWhatsAppSender posts messages to the Twilio Messages API using whatsapp: addressing.
type TwilioWhatsAppSender struct {
	cfg    TwilioConfig
	client *http.Client
}

type twilioMessageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Message      string `json:"message"`
	Code         int    `json:"code"`
}

// NewTwilioWhatsAppSender validates cfg and constructs the sender.
func NewTwilioWhatsAppSender(cfg TwilioConfig, client *http.Client) (*TwilioWhatsAppSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio sender: account sid and auth token are required")
	}
	if cfg.From == "" {
		return nil, errors.New("twilio sender: from number is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTwilioBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &TwilioWhatsAppSender{cfg: cfg, client: client}, nil
}

// SendWhatsApp delivers msg to phone.
func (s *TwilioWhatsAppSender) SendWhatsApp(ctx context.Context, phone string, msg Message) *Result {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(s.cfg.AccountSID))

	form := url.Values{}
	form.Set("From", whatsappAddress(s.cfg.From))
	form.Set("To", whatsappAddress(phone))
	form.Set("Body", ShortText(msg))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Failed(fmt.Errorf("twilio: build request: %w", err))
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Failed(fmt.Errorf("twilio: send: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Failed(fmt.Errorf("twilio: read response: %w", err))
	}

	var payload twilioMessageResponse
	_ = json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := payload.Message
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return Failed(fmt.Errorf("twilio: status %d: %s", resp.StatusCode, reason))
	}
	if payload.ErrorMessage != "" {
		return Failed(fmt.Errorf("twilio: %s", payload.ErrorMessage))
	}
	return Delivered(payload.SID)
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
