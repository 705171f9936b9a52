package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/telebot.v3"

	"goldtrade/internal/domain"
	"goldtrade/internal/utils"
)

// NotificationService posts ledger events to the operators' Telegram chat
type NotificationService struct {
	bot      *telebot.Bot
	chat     *telebot.Chat
	enabled  bool
	location *time.Location
}

// NewNotificationService creates the Telegram channel. apiURL may be empty
// for the public Bot API. Without a token or chat the channel is a no-op.
func NewNotificationService(botToken string, chatID int64, apiURL string) (*NotificationService, error) {
	s := &NotificationService{
		enabled:  botToken != "" && chatID != 0,
		location: utils.GetLocation(),
	}
	if !s.enabled {
		return s, nil
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:   botToken,
		URL:     apiURL,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	s.bot = bot
	s.chat = &telebot.Chat{ID: chatID}
	return s, nil
}

// Name identifies the channel in logs and metrics
func (s *NotificationService) Name() string { return "telegram" }

// Notify sends a formatted event message
func (s *NotificationService) Notify(ctx context.Context, evt domain.LedgerEvent) error {
	if !s.enabled {
		return nil // Silently skip if Telegram is not configured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.bot.Send(s.chat, s.format(evt), telebot.ModeHTML); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// format renders the event as Telegram HTML. Every value is escaped since
// jewelry items and slip references come from user input.
func (s *NotificationService) format(evt domain.LedgerEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>%s</b>\n", emoji(evt), html.EscapeString(title(evt)))
	b.WriteString("━━━━━━━━━━━━━━━━━\n")
	if evt.UserID != uuid.Nil {
		line(&b, "👤 Customer", evt.UserID.String())
	}
	if evt.GoldType != "" {
		line(&b, "🪙 Gold", string(evt.GoldType))
	}
	if !evt.Amount.IsZero() {
		line(&b, "⚖️ Amount", evt.Amount.String())
	}
	if !evt.Total.IsZero() {
		line(&b, "💰 Total", "฿"+evt.Total.StringFixed(2))
	}
	if evt.Detail != "" {
		line(&b, "📝 Detail", evt.Detail)
	}
	fmt.Fprintf(&b, "🕒 Time: <code>%s</code>", evt.At.In(s.location).Format("2006-01-02 15:04:05"))
	return b.String()
}

func line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s: <code>%s</code>\n", label, html.EscapeString(value))
}

func title(evt domain.LedgerEvent) string {
	switch evt.Name {
	case domain.EventTransaction:
		return strings.ToUpper(strings.ReplaceAll(evt.Type, "_", " "))
	case domain.EventExchange:
		return "EXCHANGE TO STOCK"
	case domain.EventAddToUser:
		return "GOLD ADDED TO CUSTOMER"
	case domain.EventTransactionCanceled:
		return "JEWELRY EXCHANGE CANCELLED"
	case domain.EventTransactionDeleted:
		return "TRANSACTION DELETED"
	case domain.EventWithdrawal:
		return "WITHDRAWAL " + strings.ToUpper(evt.Type)
	case domain.EventDeposit:
		return "DEPOSIT VERIFIED"
	default:
		return strings.ToUpper(evt.Name)
	}
}

func emoji(evt domain.LedgerEvent) string {
	switch {
	case evt.Type == string(domain.TxnBuy):
		return "🟢"
	case evt.Type == string(domain.TxnSell):
		return "🔴"
	case evt.Name == domain.EventDeposit:
		return "💵"
	case evt.Name == domain.EventWithdrawal:
		return "🏧"
	default:
		return "📦"
	}
}
