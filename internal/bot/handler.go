package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/EternisAI/vpn-admin-bot/internal/action"
	"github.com/EternisAI/vpn-admin-bot/internal/audit"
	"github.com/EternisAI/vpn-admin-bot/internal/catalog"
	"github.com/EternisAI/vpn-admin-bot/internal/metrics"
	"github.com/EternisAI/vpn-admin-bot/internal/provisioner"
	"github.com/EternisAI/vpn-admin-bot/internal/session"
)

const (
	msgNotAuthorized = "You are not authorized. Use /login <secret> first."
	msgNoClients     = "No clients yet. Create one with /add <name>."
	msgInternal      = "Something went wrong. Please try again later."
)

// Handler turns commands and button presses into replies. It holds no
// per-conversation state: everything a callback needs travels in its payload.
type Handler struct {
	auth     *session.Authorizer
	secret   session.Verifier
	catalog  *catalog.Catalog
	tool     provisioner.Provisioner
	recorder *audit.Recorder
	now      func() time.Time
}

func NewHandler(
	auth *session.Authorizer,
	secret session.Verifier,
	cat *catalog.Catalog,
	tool provisioner.Provisioner,
	recorder *audit.Recorder,
) *Handler {
	return &Handler{
		auth:     auth,
		secret:   secret,
		catalog:  cat,
		tool:     tool,
		recorder: recorder,
		now:      time.Now,
	}
}

func (h *Handler) HandleCommand(ctx context.Context, cmd Command) Reply {
	switch cmd.Name {
	case "start", "help":
		return textReply(outcomeOK, helpText())
	case "myid":
		return textReply(outcomeOK, fmt.Sprintf("Your id: %d", int64(cmd.Principal)))
	case "login":
		return h.login(ctx, cmd)
	case "list", "get", "remove", "add":
	default:
		return textReply(outcomeRejected, fmt.Sprintf("Unknown command /%s.\n\n%s", cmd.Name, helpText()))
	}

	if !h.auth.IsAuthorized(cmd.Principal, h.now()) {
		h.recorder.Record(ctx, audit.Event{
			Principal: int64(cmd.Principal),
			Action:    audit.ActionDeniedRequest,
			Outcome:   audit.OutcomeFailure,
			Detail:    "/" + cmd.Name,
		})
		return textReply(outcomeDenied, msgNotAuthorized)
	}

	switch cmd.Name {
	case "list":
		return h.list()
	case "get":
		return h.get(ctx, cmd)
	case "remove":
		return h.remove(cmd)
	default:
		return h.add(ctx, cmd)
	}
}

func (h *Handler) login(ctx context.Context, cmd Command) Reply {
	supplied := strings.TrimSpace(cmd.RawArgs)
	event := audit.Event{Principal: int64(cmd.Principal)}

	if !h.auth.AuthorizeWith(cmd.Principal, supplied, h.secret, h.now()) {
		metrics.Logins.WithLabelValues("failure").Inc()
		slog.Warn("Login failed", "principal", int64(cmd.Principal))
		event.Action, event.Outcome = audit.ActionLoginFailed, audit.OutcomeFailure
		h.recorder.Record(ctx, event)
		return textReply(outcomeDenied, "Wrong secret.")
	}

	metrics.Logins.WithLabelValues("success").Inc()
	event.Action, event.Outcome = audit.ActionLogin, audit.OutcomeSuccess
	h.recorder.Record(ctx, event)
	return textReply(outcomeOK, fmt.Sprintf("Access granted for %s.", h.auth.TTL()))
}

func (h *Handler) list() Reply {
	clients, err := h.catalog.List()
	if err != nil {
		slog.Error("Failed to list clients", "dir", h.catalog.Dir(), "error", err)
		return textReply(outcomeFailed, "Failed to read the client list.")
	}
	if len(clients) == 0 {
		return textReply(outcomeOK, msgNoClients)
	}

	var b strings.Builder
	b.WriteString("Clients:\n")
	for i, c := range clients {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return textReply(outcomeOK, strings.TrimRight(b.String(), "\n"))
}

func (h *Handler) get(ctx context.Context, cmd Command) Reply {
	if len(cmd.Args) == 0 {
		return h.selection("Choose a client to download:", func(c string) action.Action {
			return action.Get{Client: c}
		})
	}
	client, reply, ok := h.resolve(operand(cmd))
	if !ok {
		return reply
	}
	return h.deliver(ctx, cmd.Principal, client, "")
}

func (h *Handler) remove(cmd Command) Reply {
	if len(cmd.Args) == 0 {
		return h.selection("Choose a client to remove:", func(c string) action.Action {
			return action.RemoveRequest{Client: c}
		})
	}
	client, reply, ok := h.resolve(operand(cmd))
	if !ok {
		return reply
	}
	return confirmation(client)
}

func (h *Handler) add(ctx context.Context, cmd Command) Reply {
	name := operand(cmd)
	if name == "" {
		return textReply(outcomeRejected, "Usage: /add <name>")
	}
	if err := catalog.ValidateName(name); err != nil {
		return errorReply(err)
	}
	if h.catalog.Exists(name) {
		return textReply(outcomeRejected, fmt.Sprintf("Client %q already exists.", name))
	}

	event := audit.Event{Principal: int64(cmd.Principal), Action: audit.ActionCreate, Client: name}
	if err := h.tool.Create(ctx, name); err != nil {
		slog.Error("Failed to create client", "client", name, "error", err)
		event.Outcome, event.Detail = audit.OutcomeFailure, err.Error()
		h.recorder.Record(ctx, event)
		return failureReply(fmt.Sprintf("Failed to create client %q", name), err)
	}

	event.Outcome = audit.OutcomeSuccess
	h.recorder.Record(ctx, event)
	slog.Info("Client created", "client", name, "principal", int64(cmd.Principal))
	return h.deliver(ctx, cmd.Principal, name, fmt.Sprintf("Client %q created.", name))
}

// operand is the single client token a command acts on. Names may contain
// spaces, so every argument belongs to it.
func operand(cmd Command) string {
	return strings.Join(cmd.Args, " ")
}

// resolve maps a user token against the current listing. On failure the
// returned reply explains why.
func (h *Handler) resolve(token string) (string, Reply, bool) {
	clients, err := h.catalog.List()
	if err != nil {
		slog.Error("Failed to list clients", "dir", h.catalog.Dir(), "error", err)
		return "", textReply(outcomeFailed, "Failed to read the client list."), false
	}
	client, err := catalog.Resolve(token, clients)
	if err != nil {
		return "", errorReply(err), false
	}
	if err := catalog.ValidateName(client); err != nil {
		return "", errorReply(err), false
	}
	return client, Reply{}, true
}

// deliver attaches the bundle for client. caption defaults to the client name.
func (h *Handler) deliver(ctx context.Context, p session.Principal, client, caption string) Reply {
	event := audit.Event{Principal: int64(p), Action: audit.ActionDownload, Client: client}

	path, err := h.catalog.Path(client)
	if err == nil && !h.catalog.Exists(client) {
		err = fmt.Errorf("%w: %s", catalog.ErrNotFound, client)
	}
	if err != nil {
		event.Outcome, event.Detail = audit.OutcomeFailure, err.Error()
		h.recorder.Record(ctx, event)
		reply := errorReply(err)
		if caption != "" {
			reply.Text = caption + " " + reply.Text
		}
		return reply
	}

	event.Outcome = audit.OutcomeSuccess
	h.recorder.Record(ctx, event)
	if caption == "" {
		caption = client
	}
	return Reply{
		Text:     caption,
		Document: &Document{Name: client + catalog.BundleExt, Path: path},
		outcome:  outcomeOK,
	}
}

// selection offers one button per client, each carrying the payload built by
// mk. Clients whose payload would not fit are left out.
func (h *Handler) selection(prompt string, mk func(client string) action.Action) Reply {
	clients, err := h.catalog.List()
	if err != nil {
		slog.Error("Failed to list clients", "dir", h.catalog.Dir(), "error", err)
		return textReply(outcomeFailed, "Failed to read the client list.")
	}
	if len(clients) == 0 {
		return textReply(outcomeOK, msgNoClients)
	}

	kb := &Keyboard{}
	for i, c := range clients {
		data, err := action.Encode(mk(c))
		if err != nil {
			slog.Warn("Client left out of selection", "client", c, "error", err)
			continue
		}
		kb.Rows = append(kb.Rows, []Button{{Label: fmt.Sprintf("%d. %s", i+1, c), Data: data}})
	}
	if len(kb.Rows) == 0 {
		return textReply(outcomeFailed, "No client can be selected with a button; pass a number or name instead.")
	}
	return Reply{Text: prompt, Keyboard: kb, outcome: outcomeOK}
}

// confirmation asks whether client should really be removed.
func confirmation(client string) Reply {
	confirm, cancel, err := action.Confirmation(client)
	if err != nil {
		return errorReply(err)
	}
	return Reply{
		Text: fmt.Sprintf("Remove client %q? This revokes its access.", client),
		Keyboard: &Keyboard{Rows: [][]Button{{
			{Label: "Yes, remove", Data: confirm},
			{Label: "No", Data: cancel},
		}}},
		outcome: outcomeOK,
	}
}

func errorReply(err error) Reply {
	switch {
	case errors.Is(err, catalog.ErrIndexOutOfRange):
		return textReply(outcomeRejected, fmt.Sprintf("No such client number: %s. Use /list to see the current numbering.", unwrapDetail(err)))
	case errors.Is(err, catalog.ErrNotFound):
		return textReply(outcomeRejected, fmt.Sprintf("Client not found: %s", unwrapDetail(err)))
	case errors.Is(err, catalog.ErrInvalidName):
		return textReply(outcomeRejected, fmt.Sprintf("Invalid client name: %s", unwrapDetail(err)))
	case errors.Is(err, action.ErrPayloadTooLarge):
		return textReply(outcomeRejected, "That client name is too long to be used with buttons.")
	default:
		slog.Error("Unhandled error", "error", err)
		return textReply(outcomeFailed, msgInternal)
	}
}

// failureReply surfaces what the provisioning tool reported.
func failureReply(prefix string, err error) Reply {
	var execErr *provisioner.ExecError
	switch {
	case errors.As(err, &execErr):
		return textReply(outcomeFailed, fmt.Sprintf("%s:\n%s", prefix, execErr.Cause()))
	case errors.Is(err, provisioner.ErrToolNotFound):
		return textReply(outcomeFailed, prefix+": the provisioning tool is missing or not executable.")
	default:
		return textReply(outcomeFailed, fmt.Sprintf("%s: %v", prefix, err))
	}
}

// unwrapDetail drops the sentinel prefix from a wrapped error message.
func unwrapDetail(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func helpText() string {
	var b strings.Builder
	b.WriteString("VPN client administration\n\n")
	for _, c := range commandHelp {
		fmt.Fprintf(&b, "/%s - %s\n", c[0], c[1])
	}
	return strings.TrimRight(b.String(), "\n")
}

var commandHelp = [][2]string{
	{"login <secret>", "start a session"},
	{"list", "show clients"},
	{"get [number|name]", "download a client profile"},
	{"add <name>", "create a client"},
	{"remove [number|name]", "remove a client"},
	{"myid", "show your Telegram id"},
	{"help", "show this message"},
}
