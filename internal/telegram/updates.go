package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EternisAI/vpn-admin-bot/internal/bot"
	"github.com/EternisAI/vpn-admin-bot/internal/session"
)

// Updates long-polls for commands and button presses until ctx is done.
// The returned channel is closed once polling has stopped.
func (g *Gateway) Updates(ctx context.Context) <-chan bot.Event {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(g.pollTimeout.Seconds())
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := g.api.GetUpdatesChan(cfg)
	out := make(chan bot.Event)

	go func() {
		defer close(out)
		defer g.api.StopReceivingUpdates()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				ev, ok := toEvent(update, g.Username())
				if !ok {
					slog.Debug("Ignoring update", "update_id", update.UpdateID)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// toEvent converts an update into a bot event. Commands addressed to another
// bot with "/cmd@other_bot" are dropped.
func toEvent(update tgbotapi.Update, username string) (bot.Event, bool) {
	if q := update.CallbackQuery; q != nil {
		if q.From == nil {
			return nil, false
		}
		cb := bot.Callback{
			ID:        q.ID,
			Principal: session.Principal(q.From.ID),
			Data:      q.Data,
		}
		if q.Message != nil {
			cb.MessageID = q.Message.MessageID
			if q.Message.Chat != nil {
				cb.ChatID = q.Message.Chat.ID
			}
		}
		// no message attached; answer in the private chat
		if cb.ChatID == 0 {
			cb.ChatID = q.From.ID
		}
		return cb, true
	}

	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil || !m.IsCommand() {
		return nil, false
	}
	name, at, addressed := strings.Cut(m.CommandWithAt(), "@")
	if addressed && !strings.EqualFold(at, username) {
		return nil, false
	}
	raw := m.CommandArguments()
	return bot.Command{
		UpdateID:  update.UpdateID,
		Principal: session.Principal(m.From.ID),
		ChatID:    m.Chat.ID,
		Name:      strings.ToLower(name),
		Args:      strings.Fields(raw),
		RawArgs:   raw,
	}, true
}
