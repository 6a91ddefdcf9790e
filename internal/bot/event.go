package bot

import "github.com/EternisAI/vpn-admin-bot/internal/session"

// Event is an inbound Command or Callback.
type Event interface {
	event()
}

// Command is a slash command typed into a chat.
type Command struct {
	UpdateID  int
	Principal session.Principal
	ChatID    int64
	Name      string
	Args      []string
	// RawArgs is everything after the command, untokenised.
	RawArgs string
}

// Callback is an inline button press. Data is the payload the button was
// rendered with; it may be stale, duplicated or forged.
type Callback struct {
	ID        string
	Principal session.Principal
	ChatID    int64
	MessageID int
	Data      string
}

func (Command) event()  {}
func (Callback) event() {}
