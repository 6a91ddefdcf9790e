// Package action encodes pending client actions into button callback data
// and decodes them when the button is pressed. The full intent travels with
// the button, so no pending-action table is kept between the two phases of
// a removal.
package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxPayloadSize is the Telegram limit on inline button callback data.
const MaxPayloadSize = 64

const (
	CmdGet    = "get"
	CmdRemove = "remove"
	CmdKill   = "kill"
	CmdSpare  = "spare"
)

var (
	ErrMalformedPayload = errors.New("malformed callback payload")
	ErrPayloadTooLarge  = errors.New("callback payload too large")
)

type payload struct {
	Cmd    string `json:"cmd"`
	Client string `json:"client"`
}

// Action is one of Get, RemoveRequest, RemoveConfirm, RemoveCancel or Unknown.
type Action interface {
	isAction()
}

// Get delivers the client's bundle.
type Get struct{ Client string }

// RemoveRequest asks for confirmation before removing the client.
type RemoveRequest struct{ Client string }

// RemoveConfirm removes the client.
type RemoveConfirm struct{ Client string }

// RemoveCancel abandons a removal.
type RemoveCancel struct{ Client string }

// Unknown is a well-formed payload carrying a command we do not handle.
type Unknown struct {
	Cmd string
	Raw string
}

func (Get) isAction()           {}
func (RemoveRequest) isAction() {}
func (RemoveConfirm) isAction() {}
func (RemoveCancel) isAction()  {}
func (Unknown) isAction()       {}

// Decode parses raw callback data. A payload that is not a JSON object
// yields ErrMalformedPayload; an unrecognised cmd yields Unknown.
func Decode(raw string) (Action, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch p.Cmd {
	case CmdGet:
		return Get{Client: p.Client}, nil
	case CmdRemove:
		return RemoveRequest{Client: p.Client}, nil
	case CmdKill:
		return RemoveConfirm{Client: p.Client}, nil
	case CmdSpare:
		return RemoveCancel{Client: p.Client}, nil
	default:
		return Unknown{Cmd: p.Cmd, Raw: raw}, nil
	}
}

// Encode renders a as callback data.
func Encode(a Action) (string, error) {
	var p payload
	switch a := a.(type) {
	case Get:
		p = payload{Cmd: CmdGet, Client: a.Client}
	case RemoveRequest:
		p = payload{Cmd: CmdRemove, Client: a.Client}
	case RemoveConfirm:
		p = payload{Cmd: CmdKill, Client: a.Client}
	case RemoveCancel:
		p = payload{Cmd: CmdSpare, Client: a.Client}
	case Unknown:
		return a.Raw, nil
	default:
		return "", fmt.Errorf("unsupported action %T", a)
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload: %w", p.Cmd, err)
	}
	if len(b) > MaxPayloadSize {
		return "", fmt.Errorf("%w: %d bytes for client %q", ErrPayloadTooLarge, len(b), p.Client)
	}
	return string(b), nil
}

// Confirmation returns the confirm and cancel payloads for removing client.
func Confirmation(client string) (confirm, cancel string, err error) {
	confirm, err = Encode(RemoveConfirm{Client: client})
	if err != nil {
		return "", "", err
	}
	cancel, err = Encode(RemoveCancel{Client: client})
	if err != nil {
		return "", "", err
	}
	return confirm, cancel, nil
}
