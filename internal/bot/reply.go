package bot

import "context"

// Gateway is the chat transport.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error
	SendDocument(ctx context.Context, chatID int64, doc Document, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type Button struct {
	Label string
	Data  string
}

// Keyboard is a set of inline buttons laid out in rows.
type Keyboard struct {
	Rows [][]Button
}

// Document is a file on disk to be attached to a message.
type Document struct {
	Name string
	Path string
}

// Reply is what the bot answers with. Edit replaces the text of the message
// whose button was pressed instead of posting a new one.
type Reply struct {
	Text     string
	Keyboard *Keyboard
	Document *Document
	Edit     bool

	outcome string
}

const (
	outcomeOK       = "ok"
	outcomeDenied   = "denied"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

func textReply(outcome, text string) Reply {
	return Reply{Text: text, outcome: outcome}
}
