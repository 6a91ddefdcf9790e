// Package telegram connects the bot to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EternisAI/vpn-admin-bot/internal/bot"
)

const DefaultPollTimeout = 60 * time.Second

type Config struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	Debug       bool          `mapstructure:"debug"`
}

// Gateway implements bot.Gateway on top of the Bot API.
type Gateway struct {
	api         *tgbotapi.BotAPI
	pollTimeout time.Duration
}

func New(cfg Config) (*Gateway, error) {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	client := &http.Client{Timeout: cfg.PollTimeout + 10*time.Second}
	return dial(cfg, tgbotapi.APIEndpoint, client)
}

func dial(cfg Config, endpoint string, client tgbotapi.HTTPClient) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is not configured")
	}
	if err := tgbotapi.SetLogger(botLogger{}); err != nil {
		return nil, fmt.Errorf("failed to set telegram logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug

	slog.Info("Connected to Telegram", "username", api.Self.UserName)
	return &Gateway{api: api, pollTimeout: cfg.PollTimeout}, nil
}

func (g *Gateway) Username() string {
	return g.api.Self.UserName
}

func (g *Gateway) SendText(ctx context.Context, chatID int64, text string, kb *bot.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if m := markup(kb); m != nil {
		msg.ReplyMarkup = m
	}
	return g.request(ctx, "sendMessage", msg)
}

// EditText replaces the text of an earlier message. A nil keyboard removes
// the buttons it carried.
func (g *Gateway) EditText(ctx context.Context, chatID int64, messageID int, text string, kb *bot.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = markup(kb)
	err := g.request(ctx, "editMessageText", edit)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (g *Gateway) SendDocument(ctx context.Context, chatID int64, doc bot.Document, caption string) error {
	f, err := os.Open(doc.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", doc.Name, err)
	}
	defer f.Close()

	upload := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: doc.Name, Reader: f})
	upload.Caption = caption
	return g.request(ctx, "sendDocument", upload)
}

func (g *Gateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return g.request(ctx, "answerCallbackQuery", tgbotapi.NewCallback(callbackID, text))
}

// The Bot API client has no context support; ctx only short-circuits
// requests that have not started yet.
func (g *Gateway) request(ctx context.Context, method string, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := g.api.Request(c); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	return nil
}

func markup(kb *bot.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	m := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &m
}

// botLogger routes the client library's logging into slog.
type botLogger struct{}

func (botLogger) Println(v ...interface{}) {
	slog.Warn(strings.TrimSpace(fmt.Sprintln(v...)), "component", "tgbotapi")
}

func (botLogger) Printf(format string, v ...interface{}) {
	slog.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "tgbotapi")
}
