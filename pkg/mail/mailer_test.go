package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	auth   smtp.Auth
	from   string
	rcpts  []string
	data   bytes.Buffer
	rcptFn func(string) error
	quit   bool
	closed bool
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (f *fakeSession) Auth(a smtp.Auth) error { f.auth = a; return nil }
func (f *fakeSession) Mail(from string) error { f.from = from; return nil }
func (f *fakeSession) Rcpt(to string) error {
	if f.rcptFn != nil {
		if err := f.rcptFn(to); err != nil {
			return err
		}
	}
	f.rcpts = append(f.rcpts, to)
	return nil
}
func (f *fakeSession) Data() (io.WriteCloser, error) { return nopCloser{&f.data}, nil }
func (f *fakeSession) Quit() error                   { f.quit = true; return nil }
func (f *fakeSession) Close() error                  { f.closed = true; return nil }

func newTestMailer(t *testing.T, cfg SMTPSettings, s *fakeSession) *smtpMailer {
	t.Helper()
	m, err := NewSMTPMailer(cfg)
	require.NoError(t, err)
	sm := m.(*smtpMailer)
	sm.dial = func(context.Context, SMTPSettings) (session, error) { return s, nil }
	sm.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return sm
}

func enabledSettings() SMTPSettings {
	return SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"}
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	m, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 465})
	require.NoError(t, err)
	require.Equal(t, defaultSMTPTimeout, m.(*smtpMailer).cfg.Timeout)

	disabled, err := NewSMTPMailer(SMTPSettings{})
	require.NoError(t, err)
	err = disabled.Send(context.Background(), Message{To: []string{"a@example.com"}})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestSMTPMailerEnvelopeValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  SMTPSettings
		msg  Message
		want string
	}{
		{name: "no recipients", cfg: enabledSettings(), msg: Message{To: []string{"  ", "\t"}}, want: "at least one recipient"},
		{name: "bad recipient", cfg: enabledSettings(), msg: Message{To: []string{"user@example.com", "bad-address"}}, want: "invalid recipient address"},
		{name: "no sender", cfg: SMTPSettings{Enabled: true, Host: "h", Port: 25}, msg: Message{To: []string{"user@example.com"}}, want: "sender address is required"},
		{name: "bad sender", cfg: enabledSettings(), msg: Message{From: "invalid-from", To: []string{"user@example.com"}}, want: "invalid from address"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &fakeSession{}
			err := newTestMailer(t, tc.cfg, s).Send(context.Background(), tc.msg)
			require.ErrorContains(t, err, tc.want)
			require.Empty(t, s.from, "nothing is sent when the envelope is invalid")
		})
	}
}

func TestSMTPMailerSendDeliversMessage(t *testing.T) {
	cfg := enabledSettings()
	cfg.Username = "mailer"
	cfg.Password = "pw"
	s := &fakeSession{}

	err := newTestMailer(t, cfg, s).Send(context.Background(), Message{
		To:      []string{"alice@example.com", " alice@example.com ", "bob@example.com"},
		Subject: "Dentist tomorrow",
		Body:    "See you at 09:30",
	})
	require.NoError(t, err)
	require.NotNil(t, s.auth)
	require.Equal(t, "no-reply@example.com", s.from)
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, s.rcpts)
	require.True(t, s.quit)
	require.True(t, s.closed)

	parsed, err := netmail.ReadMessage(&s.data)
	require.NoError(t, err)
	require.Equal(t, "Dentist tomorrow", parsed.Header.Get("Subject"))
	require.Equal(t, "alice@example.com, bob@example.com", parsed.Header.Get("To"))
	require.Equal(t, "Sat, 14 Mar 2026 09:00:00 +0000", parsed.Header.Get("Date"))
	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	require.Equal(t, "See you at 09:30", string(body))
}

func TestSMTPMailerRcptFailure(t *testing.T) {
	s := &fakeSession{rcptFn: func(to string) error {
		if to == "bob@example.com" {
			return errors.New("550 mailbox unavailable")
		}
		return nil
	}}
	err := newTestMailer(t, enabledSettings(), s).Send(context.Background(), Message{
		To: []string{"alice@example.com", "bob@example.com"},
	})
	require.ErrorContains(t, err, "rcpt to bob@example.com")
	require.False(t, s.quit)
	require.True(t, s.closed)
}

func TestComposeMessageSanitisesSubject(t *testing.T) {
	raw, err := composeMessage("from@example.com", []string{"to@example.com"}, Message{Subject: "Subject\r\nBcc: x@example.com", Body: "Body"}, time.Now())
	require.NoError(t, err)

	parsed, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "Subject  Bcc: x@example.com", parsed.Header.Get("Subject"))
	require.Empty(t, parsed.Header.Get("Bcc"))

	raw, err = composeMessage("from@example.com", []string{"to@example.com"}, Message{Subject: "Rappel: échéance"}, time.Now())
	require.NoError(t, err)
	parsed, err = netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	decoded, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	require.Equal(t, "Rappel: échéance", decoded)
}

func TestComposeMessageMultipart(t *testing.T) {
	raw, err := composeMessage("from@example.com", []string{"to@example.com"}, Message{
		Subject:   "Reminder",
		Body:      "plain body",
		HTMLBody:  `<p style="color:red">html body</p>`,
		MessageID: "abc-123@lifeadmin",
	}, time.Now())
	require.NoError(t, err)

	parsed, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "<abc-123@lifeadmin>", parsed.Header.Get("Message-ID"))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)
	require.Equal(t, "alt-abc-123_lifeadmin", params["boundary"])

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	var bodies []string
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(part)
		require.NoError(t, err)
		bodies = append(bodies, part.Header.Get("Content-Type")+"|"+string(content))
	}
	require.Equal(t, []string{
		"text/plain; charset=UTF-8|plain body",
		`text/html; charset=UTF-8|<p style="color:red">html body</p>`,
	}, bodies)
}

func TestBoundaryFor(t *testing.T) {
	require.Empty(t, boundaryFor("  "))
	require.Equal(t, "alt-n_1_x", boundaryFor("n 1@x"))
	require.Len(t, boundaryFor(strings.Repeat("a", 100)), maxBoundaryLength)
}
