// Package notify delivers newly ingested items to users over Telegram.
// Delivery is optional decoration on top of the ingestion pipeline; a nil
// notifier disables it entirely.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sselimkoc/feedTune-sub004/internal/feed"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const telegramMessageMaxLength = 4096

type TelegramNotifier struct {
	bot *bot.Bot
	log *slog.Logger
}

func NewTelegramNotifier(token string, log *slog.Logger) (*TelegramNotifier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("bot token is empty")
	}

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramNotifier{
		bot: b,
		log: log,
	}, nil
}

// SendNewItems sends the new items of one refresh pass to a chat, grouped by
// feed and chunked under Telegram's message length limit.
func (n *TelegramNotifier) SendNewItems(
	ctx context.Context,
	chatID int64,
	results []feed.RefreshResult,
) error {
	messages := formatResultsAsMessages(results)

	var errs []error
	for _, message := range messages {
		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      message,
			ParseMode: models.ParseModeMarkdown,
			LinkPreviewOptions: &models.LinkPreviewOptions{
				IsDisabled: bot.True(),
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send message: %w", err))
		}
	}

	return errors.Join(errs...)
}

func formatResultsAsMessages(results []feed.RefreshResult) []string {
	var messages []string
	var currentMessage strings.Builder

	currentMessage.WriteString("📰 *New items*\n\n")
	headerLength := currentMessage.Len()

	for _, result := range results {
		if len(result.NewItems) == 0 {
			continue
		}

		feedHeader := fmt.Sprintf("📌 *[%s](%s)*\n\n",
			bot.EscapeMarkdown(result.Feed.Title), result.Feed.URL)

		for i, item := range result.NewItems {
			title := strings.TrimSpace(item.Title)
			if title == "" {
				title = item.Link
			}

			bulletPoint := fmt.Sprintf("– [%s](%s)\n\n", bot.EscapeMarkdown(title), item.Link)

			prefix := ""
			if i == 0 {
				prefix = feedHeader
			}

			if currentMessage.Len()+len(prefix)+len(bulletPoint) > telegramMessageMaxLength {
				messages = append(messages, currentMessage.String())
				currentMessage.Reset()
				currentMessage.WriteString("📰 *New items \\(continue\\)*\n\n")
				prefix = feedHeader
			}

			currentMessage.WriteString(prefix)
			currentMessage.WriteString(bulletPoint)
		}
	}

	if currentMessage.Len() > headerLength {
		messages = append(messages, currentMessage.String())
	}

	return messages
}
