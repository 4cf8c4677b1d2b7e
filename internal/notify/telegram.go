package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/donaldgifford/film-deal-tracker/internal/metrics"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// Telegram rejects messages longer than 4096 characters.
const telegramMaxMessage = 4096

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier implements Notifier via a Telegram bot posting to one
// chat.
type TelegramNotifier struct {
	bot    messageSender
	chatID int64
}

// NewTelegramNotifier authenticates the bot token and returns a notifier
// posting to chatID.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Dispatch sends the deals as HTML messages, split to fit Telegram's message
// size limit.
func (n *TelegramNotifier) Dispatch(ctx context.Context, subscriberID string, deals []domain.Deal) error {
	if len(deals) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	}()

	for _, text := range formatTelegram(subscriberID, deals) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(n.chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			return fmt.Errorf("sending telegram message: %w", err)
		}
	}
	return nil
}

func formatTelegram(subscriberID string, deals []domain.Deal) []string {
	header := fmt.Sprintf("<b>%d new deal(s) for %s</b>\n\n", len(deals), escapeHTML(subscriberID))

	var messages []string
	var b strings.Builder
	b.WriteString(header)
	for i := range deals {
		line := formatTelegramDeal(&deals[i])
		if b.Len()+len(line) > telegramMaxMessage && b.Len() > len(header) {
			messages = append(messages, b.String())
			b.Reset()
			b.WriteString(header)
		}
		b.WriteString(line)
	}
	return append(messages, b.String())
}

func formatTelegramDeal(d *domain.Deal) string {
	o := &d.Offer
	title := escapeHTML(DealTitle(d))
	if o.URL != "" {
		title = fmt.Sprintf(`<a href="%s">%s</a>`, escapeHTML(o.URL), title)
	}
	return fmt.Sprintf("%s\n%s at %s (%s)\n\n",
		title,
		escapeHTML(FormatPrice(o)),
		escapeHTML(o.Vendor),
		formatName(o.Format),
	)
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
