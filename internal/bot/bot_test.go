package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/vpn-admin-bot/internal/action"
	"github.com/EternisAI/vpn-admin-bot/internal/audit"
	"github.com/EternisAI/vpn-admin-bot/internal/session"
)

// MockGateway is a mock implementation of Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) error {
	return m.Called(chatID, text, kb).Error(0)
}

func (m *MockGateway) EditText(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error {
	return m.Called(chatID, messageID, text, kb).Error(0)
}

func (m *MockGateway) SendDocument(ctx context.Context, chatID int64, doc Document, caption string) error {
	return m.Called(chatID, doc, caption).Error(0)
}

func (m *MockGateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return m.Called(callbackID, text).Error(0)
}

// runEvents feeds events to a fresh Bot and waits for all of them.
func runEvents(t *testing.T, b *Bot, events ...Event) {
	t.Helper()

	ch := make(chan Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background(), ch) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not finish")
	}
}

func TestBot_Command(t *testing.T) {
	f := newFixture(t, "alice")
	gw := &MockGateway{}
	gw.On("SendText", int64(root), "Clients:\n1. alice", mock.Anything).Return(nil).Once()

	runEvents(t, New(f.handler, gw), Command{Principal: root, ChatID: int64(root), Name: "list"})

	gw.AssertExpectations(t)
}

func TestBot_SendsDocument(t *testing.T) {
	f := newFixture(t, "alice")
	gw := &MockGateway{}
	gw.On("SendDocument", int64(root), mock.MatchedBy(func(d Document) bool {
		return d.Name == "alice.ovpn"
	}), "alice").Return(nil).Once()

	runEvents(t, New(f.handler, gw), Command{Principal: root, ChatID: int64(root), Name: "get", Args: []string{"1"}})

	gw.AssertExpectations(t)
	gw.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestBot_DocumentFailureFallsBackToText(t *testing.T) {
	f := newFixture(t, "alice")
	gw := &MockGateway{}
	gw.On("SendDocument", int64(root), mock.Anything, "alice").Return(errors.New("file vanished")).Once()
	gw.On("SendText", int64(root), "Failed to send alice.ovpn.", mock.Anything).Return(nil).Once()

	runEvents(t, New(f.handler, gw), Command{Principal: root, ChatID: int64(root), Name: "get", Args: []string{"alice"}})

	gw.AssertExpectations(t)
}

func TestBot_AcknowledgesCallbackBeforeHandling(t *testing.T) {
	f := newFixture(t, "alice")

	var mu sync.Mutex
	var order []string
	record := func(step string) func(mock.Arguments) {
		return func(mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, step)
		}
	}

	f.tool.On("Remove", "alice").Run(record("remove")).Return(nil).Once()
	gw := &MockGateway{}
	gw.On("AnswerCallback", "cb-1", "").Run(record("ack")).Return(nil).Once()
	gw.On("EditText", int64(root), 42, `Client "alice" removed.`, mock.Anything).Run(record("edit")).Return(nil).Once()

	data, err := action.Encode(action.RemoveConfirm{Client: "alice"})
	require.NoError(t, err)
	runEvents(t, New(f.handler, gw), Callback{ID: "cb-1", Principal: root, ChatID: int64(root), MessageID: 42, Data: data})

	assert.Equal(t, []string{"ack", "remove", "edit"}, order)
	gw.AssertExpectations(t)
	f.tool.AssertExpectations(t)
}

func TestBot_EditFailureFallsBackToNewMessage(t *testing.T) {
	f := newFixture(t, "alice")
	gw := &MockGateway{}
	gw.On("AnswerCallback", "cb", "").Return(errors.New("query is too old")).Once()
	gw.On("EditText", int64(root), 9, mock.Anything, mock.Anything).Return(errors.New("message to edit not found")).Once()
	gw.On("SendText", int64(root), `Client "alice" was not removed. No action taken.`, mock.Anything).Return(nil).Once()

	runEvents(t, New(f.handler, gw), Callback{
		ID:        "cb",
		Principal: root,
		ChatID:    int64(root),
		MessageID: 9,
		Data:      `{"cmd":"spare","client":"alice"}`,
	})

	gw.AssertExpectations(t)
	f.tool.AssertNotCalled(t, "Remove", mock.Anything)
}

func TestBot_PanicIsContained(t *testing.T) {
	broken := NewHandler(session.NewAuthorizer(time.Hour, root), session.PlainSecret(testSecret), nil, &MockProvisioner{}, audit.NewRecorder(audit.NewMemoryStore(10)))
	gw := &MockGateway{}
	gw.On("SendText", int64(root), msgInternal, mock.Anything).Return(nil).Once()
	gw.On("SendText", int64(stranger), "Your id: 200", mock.Anything).Return(nil).Once()

	runEvents(t, New(broken, gw),
		Command{Principal: root, ChatID: int64(root), Name: "list"},
		Command{Principal: stranger, ChatID: int64(stranger), Name: "myid"},
	)

	gw.AssertExpectations(t)
}

func TestBot_HandlesChatsConcurrently(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	release := make(chan struct{})

	f.tool.On("Remove", "alice").Run(func(mock.Arguments) { <-release }).Return(nil).Once()
	gw := &MockGateway{}
	gw.On("AnswerCallback", mock.Anything, "").Return(nil)
	gw.On("EditText", int64(root), 1, mock.Anything, mock.Anything).Return(nil).Once()
	gw.On("SendText", int64(stranger), "Your id: 200", mock.Anything).Run(func(mock.Arguments) {
		close(release)
	}).Return(nil).Once()

	runEvents(t, New(f.handler, gw),
		Callback{ID: "slow", Principal: root, ChatID: int64(root), MessageID: 1, Data: `{"cmd":"kill","client":"alice"}`},
		Command{Principal: stranger, ChatID: int64(stranger), Name: "myid"},
	)

	gw.AssertExpectations(t)
	f.tool.AssertExpectations(t)
}

func TestBot_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	gw := &MockGateway{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- New(f.handler, gw).Run(ctx, make(chan Event)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCommandLabel(t *testing.T) {
	assert.Equal(t, "get", commandLabel("get"))
	assert.Equal(t, "unknown", commandLabel("rm -rf"))
}
