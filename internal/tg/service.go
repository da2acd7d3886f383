package tg

import (
	"context"
	"log"
	"time"

	"github.com/pvzzle/airdrop/internal/bus"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

// Service forwards engine notifications to a Telegram chat.
type Service struct {
	bot    sender
	chatID int64

	notifyCh <-chan bus.Notification
}

func NewService(b sender, chatID int64, notifyCh <-chan bus.Notification) *Service {
	return &Service{
		bot:      b,
		chatID:   chatID,
		notifyCh: notifyCh,
	}
}

// StartNotifyLoop sends notifications until notifyCh is closed. Once ctx is
// done the remaining queue is still drained, each send bounded by a short
// timeout, so the final summary gets out on shutdown.
func (s *Service) StartNotifyLoop(ctx context.Context) {
	for n := range s.notifyCh {
		chatID := n.ChatID
		if chatID == 0 {
			chatID = s.chatID
		}

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		_, err := s.bot.SendMessage(sctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   n.Text,
		})
		cancel()
		if err != nil {
			log.Printf("[tg] send notify error: %v", err)
		}
	}
}
