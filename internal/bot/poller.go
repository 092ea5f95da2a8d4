package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/sofia-labs/sofia/internal/telegram"
)

// pollRetryDelay backs off the update loop after a transport error.
const pollRetryDelay = 3 * time.Second

// Poller drives the Telegram long-poll loop, dispatching each message to
// the orchestrator on its own goroutine. The session lock guarantees one
// turn at a time per user; near-simultaneous messages from the same user
// may be handled in either order.
type Poller struct {
	client *telegram.Client
	orch   *Orchestrator
}

// NewPoller creates a poller.
func NewPoller(client *telegram.Client, orch *Orchestrator) *Poller {
	return &Poller{client: client, orch: orch}
}

// Run polls until the context is canceled.
func (p *Poller) Run(ctx context.Context) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("update poll failed", "error", err)
			select {
			case <-time.After(pollRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.From == nil {
				continue
			}
			msg := u.Message
			go p.orch.HandleMessage(ctx, telegram.UserID(msg.From.ID), msg.Text, &telegramReplier{
				client: p.client,
				chatID: msg.Chat.ID,
			})
		}
	}
}

type telegramReplier struct {
	client *telegram.Client
	chatID int64
}

func (t *telegramReplier) Reply(ctx context.Context, text string) error {
	return t.client.SendText(ctx, t.chatID, text)
}

func (t *telegramReplier) ReplyKeyboard(ctx context.Context, text string, buttons [][]string) error {
	return t.client.SendKeyboard(ctx, t.chatID, text, buttons)
}
