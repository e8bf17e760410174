package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

var ErrNoRecipient = errors.New("booking has no guest email")

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromName  string
	FromEmail string
}

type SMTPSender struct {
	conf SMTPConfig
}

func NewSMTPSender(conf SMTPConfig) *SMTPSender {
	return &SMTPSender{conf: conf}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	m := mail.NewMsg()

	if err := m.FromFormat(s.conf.FromName, s.conf.FromEmail); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}

	if err := m.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.conf.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		//nolint:exhaustruct
		mail.WithTLSConfig(&tls.Config{ServerName: s.conf.Host, MinVersion: tls.VersionTLS12}),
	}

	if s.conf.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.conf.User),
			mail.WithPassword(s.conf.Password),
		)
	}

	client, err := mail.NewClient(s.conf.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client for %s:%d: %w", s.conf.Host, s.conf.Port, err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail via %s:%d: %w", s.conf.Host, s.conf.Port, err)
	}

	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	l *logger.Logger
}

func NewLogSender(l *logger.Logger) *LogSender {
	return &LogSender{l: l}
}

func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.l.LogInfo("Mail to %v not sent (SMTP disabled): %v", to, subject)

	return nil
}

// ConfirmationMailer mails the guest once a booking is paid.
type ConfirmationMailer struct {
	sender Sender
	hotel  string
}

func NewConfirmationMailer(sender Sender, hotel string) *ConfirmationMailer {
	return &ConfirmationMailer{sender: sender, hotel: hotel}
}

func (c *ConfirmationMailer) Name() string {
	return "confirmation-mailer"
}

func (c *ConfirmationMailer) Handle(ctx context.Context, event booking.Event, b *booking.Booking) error {
	if event.Status != booking.StatusConfirmed {
		return nil
	}

	if b.GuestEmail == "" {
		return fmt.Errorf("confirm booking %v: %w", b.ID, ErrNoRecipient)
	}

	subject := fmt.Sprintf("Booking %s confirmed - %s", b.ConfirmationCode, c.hotel)

	if err := c.sender.Send(ctx, b.GuestEmail, subject, ConfirmationBody(b)); err != nil {
		return fmt.Errorf("send confirmation of booking %v: %w", b.ID, err)
	}

	return nil
}

func ConfirmationBody(b *booking.Booking) string {
	var sb strings.Builder

	name := b.GuestName
	if name == "" {
		name = "guest"
	}

	fmt.Fprintf(&sb, "Dear %s,\n\n", name)
	fmt.Fprintf(&sb, "your booking %s is confirmed.\n\n", b.ConfirmationCode)
	fmt.Fprintf(&sb, "Room: %d\nCheck-in: %s\nCheck-out: %s\n", b.RoomID, b.CheckIn, b.CheckOut)
	fmt.Fprintf(&sb, "Guests: %d adult(s), %d kid(s)\n\n", b.Adults, b.Kids)

	for _, night := range b.Breakdown {
		fmt.Fprintf(&sb, "  %s  %-20s %10.2f\n", night.Date, night.Label, night.Rate)
	}

	fmt.Fprintf(&sb, "\nSubtotal: %.2f\n", b.Subtotal)

	if b.Discount > 0 {
		fmt.Fprintf(&sb, "Discount (%s): -%.2f\n", b.PromoCode, b.Discount)
	}

	fmt.Fprintf(&sb, "Total: %.2f\n", b.TotalAmount)

	return sb.String()
}

// StatusLogger records every booking event in the application log.
type StatusLogger struct {
	l *logger.Logger
}

func NewStatusLogger(l *logger.Logger) *StatusLogger {
	return &StatusLogger{l: l}
}

func (s *StatusLogger) Name() string {
	return "status-logger"
}

func (s *StatusLogger) Handle(_ context.Context, event booking.Event, b *booking.Booking) error {
	s.l.LogInfo("Booking %v (%v) is %v: %v", b.ID, b.ConfirmationCode, event.Status, event.Note)

	return nil
}
