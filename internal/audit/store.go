package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrStoreClosed = errors.New("audit store closed")

type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Recorder stamps events and writes them to a Store. Failures are logged and
// swallowed: losing an audit line must never fail the user's request.
type Recorder struct {
	store Store
	now   func() time.Time
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.store == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now().UTC()
	}
	if err := r.store.Append(ctx, event); err != nil {
		slog.Error("Failed to record audit event",
			"action", event.Action,
			"principal", event.Principal,
			"client", event.Client,
			"error", err)
	}
}

func (r *Recorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if r == nil || r.store == nil {
		return nil, ErrStoreClosed
	}
	return r.store.ListRecent(ctx, limit)
}
