// Package dispatch hands plain-text messages to an SMTP server: the configured one when
// credentials are present, otherwise a sandbox account whose messages can be previewed.
package dispatch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"emailhub/pkg/logger"
	"emailhub/pkg/metrics"
	"emailhub/pkg/util"
)

const (
	TransportSMTP    = "smtp"
	TransportSandbox = "sandbox"

	sandboxSender = "no-reply@ethereal.email"
	senderName    = "NoReply"
)

// ErrNoRecipientAccepted is returned when the server rejects every recipient.
var ErrNoRecipientAccepted = errors.New("no recipient accepted")

var msgIDPattern = regexp.MustCompile(`MSGID=([^\s\]]+)`)

type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type Result struct {
	Accepted   bool
	PreviewURL string
}

type transport struct {
	name     string
	host     string
	port     int
	implicit bool
	user     string
	pass     string
	from     *mail.Address
	webURL   string
}

type Mailer struct {
	cfg     Config
	sandbox *Sandbox
	logger  *zap.Logger

	// tlsConfig is cloned for every connection; nil uses the system roots.
	tlsConfig *tls.Config
}

// NewMailer returns a Mailer. sandbox is only consulted when cfg lacks User or Pass.
func NewMailer(cfg Config, sandbox *Sandbox, logger *zap.Logger) *Mailer {
	if cfg.Host == "" {
		cfg.Host = DefaultSMTPHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	if sandbox == nil {
		sandbox = NewSandbox("", nil)
	}
	return &Mailer{cfg: cfg, sandbox: sandbox, logger: logger}
}

// Dispatch sends one message to the comma-separated recipient list. Accepted is true
// when at least one recipient was accepted; PreviewURL is only set for sandbox mail.
func (m *Mailer) Dispatch(ctx context.Context, recipient, subject, body string) (Result, error) {
	log := logger.WithTrace(ctx, m.logger)

	t, err := m.transport(ctx)
	if err != nil {
		metrics.IncrementDispatch(TransportSandbox, util.ClassifyError(err))
		return Result{}, err
	}

	res, err := m.send(log, t, recipient, subject, body)
	if err != nil {
		metrics.IncrementDispatch(t.name, util.ClassifyError(err))
		log.Error("Failed to dispatch email",
			zap.String("transport", t.name),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
		return Result{}, err
	}

	metrics.IncrementDispatch(t.name, "ok")
	log.Info("Email dispatched",
		zap.String("transport", t.name),
		zap.String("recipient", recipient),
		zap.Bool("accepted", res.Accepted),
		zap.String("preview_url", res.PreviewURL),
	)
	return res, nil
}

func (m *Mailer) transport(ctx context.Context) (transport, error) {
	if m.cfg.User != "" && m.cfg.Pass != "" {
		from := m.cfg.From
		if from == "" {
			from = m.cfg.User
		}
		return transport{
			name: TransportSMTP,
			host: m.cfg.Host,
			port: m.cfg.Port,
			user: m.cfg.User,
			pass: m.cfg.Pass,
			from: senderAddress(from),
		}, nil
	}

	account, err := m.sandbox.Account(ctx)
	if err != nil {
		return transport{}, err
	}
	return transport{
		name:     TransportSandbox,
		host:     account.SMTP.Host,
		port:     account.SMTP.Port,
		implicit: account.SMTP.Secure,
		user:     account.User,
		pass:     account.Pass,
		from:     senderAddress(sandboxSender),
		webURL:   account.Web,
	}, nil
}

func senderAddress(from string) *mail.Address {
	if addr, err := mail.ParseAddress(from); err == nil {
		if addr.Name == "" {
			addr.Name = senderName
		}
		return addr
	}
	return &mail.Address{Name: senderName, Address: from}
}

func (m *Mailer) clientTLSConfig(host string) *tls.Config {
	cfg := &tls.Config{}
	if m.tlsConfig != nil {
		cfg = m.tlsConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// dial connects to t. Implicit TLS transports handshake immediately; the others are
// upgraded with STARTTLS when the server advertises it.
func (m *Mailer) dial(t transport) (*smtp.Client, error) {
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	tlsConfig := m.clientTLSConfig(t.host)

	if t.implicit {
		c, err := smtp.DialTLS(addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("dial tls %s: %w", addr, err)
		}
		return c, nil
	}

	c, err := smtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		return c, nil
	}

	// The client can only upgrade while connecting, so reconnect with STARTTLS.
	_ = c.Quit()
	c, err = smtp.DialStartTLS(addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("starttls %s: %w", addr, err)
	}
	return c, nil
}

func (m *Mailer) send(log *zap.Logger, t transport, recipient, subject, body string) (Result, error) {
	rcpts, err := mail.ParseAddressList(recipient)
	if err != nil {
		return Result{}, fmt.Errorf("parse recipient %q: %w", recipient, err)
	}

	c, err := m.dial(t)
	if err != nil {
		return Result{}, err
	}
	defer c.Close()

	if ok, _ := c.Extension("AUTH"); ok && t.user != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.user, t.pass)); err != nil {
			return Result{}, fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(t.from.Address, nil); err != nil {
		return Result{}, fmt.Errorf("mail from: %w", err)
	}

	accepted := 0
	for _, rcpt := range rcpts {
		if err := c.Rcpt(rcpt.Address, nil); err != nil {
			var smtpErr *smtp.SMTPError
			if errors.As(err, &smtpErr) {
				log.Warn("Recipient rejected",
					zap.String("recipient", rcpt.Address),
					zap.Int("code", smtpErr.Code),
					zap.String("message", smtpErr.Message),
				)
				continue
			}
			return Result{}, fmt.Errorf("rcpt to: %w", err)
		}
		accepted++
	}
	if accepted == 0 {
		return Result{}, ErrNoRecipientAccepted
	}

	w, err := c.Data()
	if err != nil {
		return Result{}, fmt.Errorf("data: %w", err)
	}
	if _, err := buildMessage(t.from, rcpts, subject, body, time.Now()).WriteTo(w); err != nil {
		_ = w.Close()
		return Result{}, fmt.Errorf("write message: %w", err)
	}
	resp, err := w.CloseWithResponse()
	if err != nil {
		return Result{}, fmt.Errorf("close data: %w", err)
	}

	// The message is already queued; a failed QUIT does not change the outcome.
	_ = c.Quit()

	res := Result{Accepted: true}
	if t.name == TransportSandbox && resp != nil {
		res.PreviewURL = previewURL(t.webURL, resp.StatusText)
	}
	return res, nil
}

// previewURL extracts the message id from a sandbox acceptance line such as
// "250 Accepted [STATUS=new MSGID=abc...]".
func previewURL(webURL, response string) string {
	match := msgIDPattern.FindStringSubmatch(response)
	if match == nil {
		return ""
	}
	if webURL == "" {
		webURL = DefaultSandboxWebURL
	}
	return strings.TrimRight(webURL, "/") + "/message/" + match[1]
}

// buildMessage returns a plain-text, quoted-printable message addressed to every
// parsed recipient, including those the server may later reject.
func buildMessage(from *mail.Address, to []*mail.Address, subject, body string, now time.Time) *gomail.Message {
	msg := gomail.NewMessage()

	recipients := make([]string, len(to))
	for i, addr := range to {
		recipients[i] = msg.FormatAddress(addr.Address, addr.Name)
	}

	domain := "localhost"
	if at := strings.LastIndex(from.Address, "@"); at >= 0 {
		domain = from.Address[at+1:]
	}

	msg.SetAddressHeader("From", from.Address, from.Name)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetDateHeader("Date", now)
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	msg.SetBody("text/plain", body)
	return msg
}
