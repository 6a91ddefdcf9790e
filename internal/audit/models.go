package audit

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionLogin         Action = "login"
	ActionLoginFailed   Action = "login_failed"
	ActionCreate        Action = "create"
	ActionRemove        Action = "remove"
	ActionRemoveSpared  Action = "remove_spared"
	ActionDownload      Action = "download"
	ActionDeniedRequest Action = "denied"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event records one privileged action taken (or refused) through the bot.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	Principal int64
	Action    Action
	Client    string
	Outcome   string
	Detail    string
}
