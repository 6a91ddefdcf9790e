package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EternisAI/vpn-admin-bot/internal/action"
	"github.com/EternisAI/vpn-admin-bot/internal/audit"
	"github.com/EternisAI/vpn-admin-bot/internal/catalog"
)

// HandleCallback dispatches a button press. Callback data is untrusted: it
// is decoded and the sender re-authorized before anything runs.
func (h *Handler) HandleCallback(ctx context.Context, cb Callback) Reply {
	a, err := action.Decode(cb.Data)
	if err != nil {
		slog.Warn("Malformed callback payload", "principal", int64(cb.Principal), "data", cb.Data, "error", err)
		return textReply(outcomeRejected, fmt.Sprintf("Could not understand this button: %s", cb.Data))
	}

	if !h.auth.IsAuthorized(cb.Principal, h.now()) {
		h.recorder.Record(ctx, audit.Event{
			Principal: int64(cb.Principal),
			Action:    audit.ActionDeniedRequest,
			Outcome:   audit.OutcomeFailure,
			Detail:    cb.Data,
		})
		return textReply(outcomeDenied, msgNotAuthorized)
	}

	switch a := a.(type) {
	case action.Get:
		return h.deliver(ctx, cb.Principal, a.Client, "")
	case action.RemoveRequest:
		if err := catalog.ValidateName(a.Client); err != nil {
			return errorReply(err)
		}
		return editReply(confirmation(a.Client))
	case action.RemoveConfirm:
		return editReply(h.removeConfirmed(ctx, cb, a.Client))
	case action.RemoveCancel:
		h.recorder.Record(ctx, audit.Event{
			Principal: int64(cb.Principal),
			Action:    audit.ActionRemoveSpared,
			Client:    a.Client,
			Outcome:   audit.OutcomeSuccess,
		})
		return editReply(textReply(outcomeOK, fmt.Sprintf("Client %q was not removed. No action taken.", a.Client)))
	case action.Unknown:
		slog.Warn("Unknown callback command", "principal", int64(cb.Principal), "cmd", a.Cmd)
		return textReply(outcomeRejected, fmt.Sprintf("Unknown request: %s", a.Raw))
	default:
		panic(fmt.Sprintf("unhandled action %T", a))
	}
}

// removeConfirmed runs the removal to completion before answering.
func (h *Handler) removeConfirmed(ctx context.Context, cb Callback, client string) Reply {
	if err := catalog.ValidateName(client); err != nil {
		return errorReply(err)
	}

	event := audit.Event{Principal: int64(cb.Principal), Action: audit.ActionRemove, Client: client}
	if err := h.tool.Remove(ctx, client); err != nil {
		slog.Error("Failed to remove client", "client", client, "error", err)
		event.Outcome, event.Detail = audit.OutcomeFailure, err.Error()
		h.recorder.Record(ctx, event)
		return failureReply(fmt.Sprintf("Failed to remove client %q", client), err)
	}

	event.Outcome = audit.OutcomeSuccess
	h.recorder.Record(ctx, event)
	slog.Info("Client removed", "client", client, "principal", int64(cb.Principal))
	return textReply(outcomeOK, fmt.Sprintf("Client %q removed.", client))
}

func editReply(r Reply) Reply {
	r.Edit = true
	return r
}

// callbackLabel names a payload for metrics without letting arbitrary input
// become a label value.
func callbackLabel(data string) string {
	a, err := action.Decode(data)
	if err != nil {
		return "malformed"
	}
	switch a.(type) {
	case action.Get:
		return action.CmdGet
	case action.RemoveRequest:
		return action.CmdRemove
	case action.RemoveConfirm:
		return action.CmdKill
	case action.RemoveCancel:
		return action.CmdSpare
	default:
		return "unknown"
	}
}
