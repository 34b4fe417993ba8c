package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
	"github.com/lifeline-network/bloodmatch/pkg/metrics"
)

type recordingSink struct {
	mu   sync.Mutex
	name string
	err  error
	got  []Message
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, msg)
	return s.err
}

type failingStore struct {
	db.NotificationStore
}

func (failingStore) InsertNotification(ctx context.Context, n *model.Notification) error {
	return errors.New("disk full")
}

type mockMailer struct {
	to, subject, body string
	calls             int
}

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	m.calls++
	m.to, m.subject, m.body = to, subject, body
	return nil
}

type mockPublisher struct {
	subject string
	data    []byte
}

func (m *mockPublisher) Publish(subject string, data []byte) error {
	m.subject, m.data = subject, data
	return nil
}

func testEvent(recipient string) model.NotificationEvent {
	return model.NotificationEvent{
		RecipientID:    recipient,
		RecipientEmail: recipient + "@example.com",
		Title:          "Blood Request",
		Message:        "Emergency request for A+ blood at St Mary's. You are 2.5km away.",
		Type:           model.NotificationTypeRequest,
		RequestID:      "req-1",
	}
}

func TestDispatcher_StoresAndDelivers(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB()
	m := metrics.New()
	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", err: errors.New("unreachable")}

	d := NewDispatcher(store, zap.NewNop(), m, Options{QueueSize: 8, Workers: 2}, good, bad)

	require.NoError(t, d.Notify(ctx, testEvent("d1")))
	require.NoError(t, d.Notify(ctx, testEvent("d2")))
	d.Close()

	inbox, err := store.ListNotifications(ctx, "d1", 50)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Blood Request", inbox[0].Title)
	assert.Equal(t, "req-1", inbox[0].Data["request_id"])
	assert.False(t, inbox[0].IsRead)
	assert.NotEmpty(t, inbox[0].ID)

	assert.Len(t, good.got, 2)
	assert.Len(t, bad.got, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("good", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("bad", "error")))
}

func TestDispatcher_StoreFailureIsReturned(t *testing.T) {
	sink := &recordingSink{name: "s"}
	d := NewDispatcher(failingStore{}, zap.NewNop(), nil, Options{}, sink)

	err := d.Notify(context.Background(), testEvent("d1"))
	d.Close()

	require.Error(t, err)
	assert.Empty(t, sink.got)
}

func TestDispatcher_NotifyAfterCloseStillStores(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB()
	sink := &recordingSink{name: "s"}
	d := NewDispatcher(store, zap.NewNop(), nil, Options{}, sink)
	d.Close()
	d.Close()

	require.NoError(t, d.Notify(ctx, testEvent("d1")))

	unread, err := store.CountUnread(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
	assert.Empty(t, sink.got)
}

func TestDispatcher_DoesNotMutateEventData(t *testing.T) {
	store := db.NewMemoryDB()
	d := NewDispatcher(store, zap.NewNop(), nil, Options{})
	defer d.Close()

	event := testEvent("d1")
	event.Data = map[string]string{"donor_name": "Ada"}
	require.NoError(t, d.Notify(context.Background(), event))

	assert.Equal(t, map[string]string{"donor_name": "Ada"}, event.Data)
}

func TestEmailSink(t *testing.T) {
	mailer := &mockMailer{}
	sink := NewEmailSink(mailer)

	msg := Message{Notification: model.Notification{Title: "Blood Request", Message: "body"}, RecipientEmail: "d1@example.com"}
	require.NoError(t, sink.Deliver(context.Background(), msg))
	assert.Equal(t, "d1@example.com", mailer.to)
	assert.Equal(t, "Blood Request", mailer.subject)
	assert.Equal(t, "body", mailer.body)

	// No address, nothing to send
	msg.RecipientEmail = ""
	require.NoError(t, sink.Deliver(context.Background(), msg))
	assert.Equal(t, 1, mailer.calls)
}

func TestNATSSink(t *testing.T) {
	pub := &mockPublisher{}
	sink := NewNATSSink(pub, "bloodmatch.notifications")

	msg := Message{Notification: model.Notification{
		ID: "n1", UserID: "d1", Title: "Blood Request", Type: model.NotificationTypeRequest,
		Data: map[string]string{"request_id": "req-1"},
	}}
	require.NoError(t, sink.Deliver(context.Background(), msg))

	assert.Equal(t, "bloodmatch.notifications.d1", pub.subject)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(pub.data, &payload))
	assert.Equal(t, "n1", payload["id"])
	assert.Equal(t, "request", payload["type"])
	assert.Equal(t, map[string]any{"request_id": "req-1"}, payload["data"])
}
