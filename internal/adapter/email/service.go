package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"goldtrade/internal/domain"
	"goldtrade/internal/utils"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Operators receive every event
	Operators []string
}

// NotificationService mails ledger events to the operators and, when the
// event belongs to a customer, to that customer
type NotificationService struct {
	cfg      Config
	users    domain.UserRepository
	client   *mail.Client
	enabled  bool
	location *time.Location
}

// NewNotificationService creates the email channel. Without a host the
// channel is a no-op.
func NewNotificationService(cfg Config, users domain.UserRepository) (*NotificationService, error) {
	s := &NotificationService{
		cfg:      cfg,
		users:    users,
		enabled:  cfg.Host != "" && cfg.From != "",
		location: utils.GetLocation(),
	}
	if !s.enabled {
		return s, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	s.client = client
	return s, nil
}

// Name identifies the channel in logs and metrics
func (s *NotificationService) Name() string { return "email" }

// Notify mails the event
func (s *NotificationService) Notify(ctx context.Context, evt domain.LedgerEvent) error {
	if !s.enabled {
		return nil
	}

	recipients := s.recipients(ctx, evt)
	if len(recipients) == 0 {
		return nil
	}
	msg, err := s.message(evt, recipients)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (s *NotificationService) recipients(ctx context.Context, evt domain.LedgerEvent) []string {
	out := append([]string(nil), s.cfg.Operators...)
	if s.users == nil || evt.UserID == uuid.Nil {
		return out
	}
	// a failed lookup still notifies the operators
	if u, err := s.users.GetByID(ctx, evt.UserID); err == nil && u.Email != "" {
		out = append(out, u.Email)
	}
	return out
}

func (s *NotificationService) message(evt domain.LedgerEvent, to []string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.Bcc(to...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(subject(evt))
	m.SetBodyString(mail.TypeTextPlain, s.body(evt))
	return m, nil
}

func subject(evt domain.LedgerEvent) string {
	switch evt.Name {
	case domain.EventDeposit:
		return "Deposit received"
	case domain.EventWithdrawal:
		return "Withdrawal " + evt.Type
	case domain.EventTransactionCanceled:
		return "Jewelry exchange cancelled"
	case domain.EventTransactionDeleted:
		return "Transaction deleted"
	case domain.EventExchange:
		return "Gold exchanged to stock"
	case domain.EventAddToUser:
		return "Gold credited to your account"
	default:
		return "Gold " + strings.ReplaceAll(evt.Type, "_", " ")
	}
}

func (s *NotificationService) body(evt domain.LedgerEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", subject(evt))
	if evt.GoldType != "" {
		fmt.Fprintf(&b, "Gold type: %s\n", evt.GoldType)
	}
	if !evt.Amount.IsZero() {
		fmt.Fprintf(&b, "Amount: %s\n", evt.Amount.String())
	}
	if !evt.Total.IsZero() {
		fmt.Fprintf(&b, "Total: %s THB\n", evt.Total.StringFixed(2))
	}
	if evt.Detail != "" {
		fmt.Fprintf(&b, "Detail: %s\n", evt.Detail)
	}
	fmt.Fprintf(&b, "Time: %s\n", evt.At.In(s.location).Format("2006-01-02 15:04:05"))
	return b.String()
}
