// Package notify delivers out-of-band messages to users. Delivery is best
// effort: a failed send is logged and never propagates into the request that
// triggered it.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"legal-timer/internal/model"
	"legal-timer/internal/repository"
	"legal-timer/internal/service"
)

// Notifier sends Telegram messages to users who linked a chat. A nil
// *Notifier is valid and silently drops everything, so callers never need a
// feature check.
type Notifier struct {
	api   *tgbotapi.BotAPI
	users *repository.UserRepository
}

func NewNotifier(token string, users *repository.UserRepository) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Printf("[info] telegram notifier authorized as %s", api.Self.UserName)
	return &Notifier{api: api, users: users}, nil
}

// AutoStopped tells the user which task was paused when a new timer started.
func (n *Notifier) AutoStopped(ctx context.Context, userID uint, stopped, started *model.Task) {
	if n == nil {
		return
	}
	user, err := n.users.FindByID(ctx, userID)
	if err != nil || user.TelegramChatID == nil {
		return
	}
	text := fmt.Sprintf("Paused %q — now timing %q.", stopped.Title, started.Title)
	n.send(*user.TelegramChatID, text)
}

// SendDailySummaries fans the timesheet summary out to every linked user.
func (n *Notifier) SendDailySummaries(ctx context.Context, reports *service.ReportService, now time.Time) error {
	if n == nil {
		return nil
	}
	users, err := n.users.ListWithTelegram(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		summary, err := reports.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("[warn] summary for user %d: %v", user.ID, err)
			continue
		}
		if summary == "" {
			continue
		}
		n.send(*user.TelegramChatID, summary)
	}
	return nil
}

func (n *Notifier) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Printf("[warn] telegram send to %d: %v", chatID, err)
	}
}
