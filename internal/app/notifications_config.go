package app

import (
	"strings"

	"github.com/charlesng35/lifeadmin/internal/notify"
	"github.com/charlesng35/lifeadmin/pkg/mail"
)

// Email providers accepted by notifications.email.provider.
const (
	EmailProviderSMTP = "smtp"
	EmailProviderSES  = "ses"
)

// BrandingSettings converts branding configuration into the notify package representation.
func (c NotificationsConfig) BrandingSettings() notify.Branding {
	return notify.Branding{
		AppName:      strings.TrimSpace(c.Branding.AppName),
		PrimaryColor: strings.TrimSpace(c.Branding.PrimaryColor),
		FooterText:   strings.TrimSpace(c.Branding.FooterText),
		DashboardURL: strings.TrimSpace(c.Branding.DashboardURL),
	}
}

// UsesAWS reports whether any configured channel needs AWS credentials.
func (c NotificationsConfig) UsesAWS() bool {
	return c.Email.ProviderName() == EmailProviderSES || c.SMS.Enabled
}

// ProviderName returns the normalised email provider, or an empty string when email is disabled.
func (c EmailConfig) ProviderName() string {
	return strings.ToLower(strings.TrimSpace(c.Provider))
}

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.ProviderName() == EmailProviderSMTP,
		Host:     strings.TrimSpace(c.SMTP.Host),
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     strings.TrimSpace(c.From),
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// TwilioSettings converts WhatsAppConfig to the notify package representation.
func (c WhatsAppConfig) TwilioSettings() notify.TwilioConfig {
	return notify.TwilioConfig{
		AccountSID: strings.TrimSpace(c.AccountSID),
		AuthToken:  c.AuthToken,
		From:       strings.TrimSpace(c.From),
		BaseURL:    strings.TrimSpace(c.BaseURL),
		Timeout:    c.Timeout,
	}
}
