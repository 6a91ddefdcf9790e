package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/EternisAI/vpn-admin-bot/internal/metrics"
)

// Bot feeds inbound events through a Handler and writes the replies back to
// the Gateway.
type Bot struct {
	handler *Handler
	gateway Gateway
	wg      sync.WaitGroup
}

func New(handler *Handler, gateway Gateway) *Bot {
	return &Bot{handler: handler, gateway: gateway}
}

// Run processes events until ctx is cancelled or events is closed, then
// waits for events already in flight. Each event is handled in its own
// goroutine so a slow tool run never blocks other chats.
func (b *Bot) Run(ctx context.Context, events <-chan Event) error {
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Bot stopping, waiting for in-flight requests")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				// in-flight work finishes on shutdown; the tool timeout bounds it
				b.process(context.WithoutCancel(ctx), ev)
			}()
		}
	}
}

func (b *Bot) process(ctx context.Context, ev Event) {
	logger := slog.With("request_id", uuid.NewString())

	var chatID int64
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling event", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			if chatID != 0 {
				if err := b.gateway.SendText(ctx, chatID, msgInternal, nil); err != nil {
					logger.Error("Failed to send error reply", "error", err)
				}
			}
		}
	}()

	switch ev := ev.(type) {
	case Command:
		chatID = ev.ChatID
		logger = logger.With("principal", int64(ev.Principal), "command", ev.Name)
		logger.Debug("Handling command", "args", len(ev.Args))

		reply := b.handler.HandleCommand(ctx, ev)
		metrics.Commands.WithLabelValues(commandLabel(ev.Name), reply.outcome).Inc()
		b.send(ctx, logger, ev.ChatID, 0, reply)

	case Callback:
		chatID = ev.ChatID
		logger = logger.With("principal", int64(ev.Principal), "callback_id", ev.ID)
		logger.Debug("Handling callback", "data", ev.Data)

		// Telegram shows a spinner until the press is acknowledged.
		if err := b.gateway.AnswerCallback(ctx, ev.ID, ""); err != nil {
			logger.Warn("Failed to acknowledge callback", "error", err)
		}
		reply := b.handler.HandleCallback(ctx, ev)
		metrics.Callbacks.WithLabelValues(callbackLabel(ev.Data), reply.outcome).Inc()
		b.send(ctx, logger, ev.ChatID, ev.MessageID, reply)

	default:
		logger.Warn("Ignoring unsupported event", "type", fmt.Sprintf("%T", ev))
	}
}

func (b *Bot) send(ctx context.Context, logger *slog.Logger, chatID int64, messageID int, reply Reply) {
	if reply.Document != nil {
		if err := b.gateway.SendDocument(ctx, chatID, *reply.Document, reply.Text); err != nil {
			logger.Error("Failed to send document", "name", reply.Document.Name, "error", err)
			b.sendText(ctx, logger, chatID, fmt.Sprintf("Failed to send %s.", reply.Document.Name), nil)
		}
		return
	}

	if reply.Edit && messageID != 0 {
		err := b.gateway.EditText(ctx, chatID, messageID, reply.Text, reply.Keyboard)
		if err == nil {
			return
		}
		logger.Warn("Failed to edit message, sending a new one", "message_id", messageID, "error", err)
	}
	b.sendText(ctx, logger, chatID, reply.Text, reply.Keyboard)
}

func (b *Bot) sendText(ctx context.Context, logger *slog.Logger, chatID int64, text string, kb *Keyboard) {
	if err := b.gateway.SendText(ctx, chatID, text, kb); err != nil {
		logger.Error("Failed to send reply", "chat_id", chatID, "error", err)
	}
}

func commandLabel(name string) string {
	switch name {
	case "start", "help", "myid", "login", "list", "get", "remove", "add":
		return name
	default:
		return "unknown"
	}
}
