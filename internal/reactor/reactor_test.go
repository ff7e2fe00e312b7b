package reactor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/lurk/internal/domain"
)

type call struct {
	name     string
	to       domain.JID
	msg      domain.OutgoingMessage
	keys     []domain.MessageKey
	presence domain.Presence
}

type fakeClient struct {
	calls    []call
	readErr  error
	failRead map[string]error
}

func (f *fakeClient) User() domain.User {
	return domain.User{ID: "628111:7@s.whatsapp.net", Name: "Lurker"}
}

func (f *fakeClient) SendMessage(_ context.Context, to domain.JID, msg domain.OutgoingMessage) error {
	f.calls = append(f.calls, call{name: "send", to: to, msg: msg})
	return nil
}

func (f *fakeClient) MarkRead(_ context.Context, keys []domain.MessageKey) error {
	f.calls = append(f.calls, call{name: "read", keys: keys})
	if err := f.failRead[keys[0].ID]; err != nil {
		return err
	}
	return f.readErr
}

func (f *fakeClient) SetPresence(_ context.Context, p domain.Presence) error {
	f.calls = append(f.calls, call{name: "presence", presence: p})
	return nil
}

func (f *fakeClient) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func statusMessage(id string, participant domain.JID) domain.Message {
	return domain.Message{Key: domain.MessageKey{
		RemoteJID:   domain.StatusBroadcast,
		FromMe:      false,
		ID:          id,
		Participant: participant,
	}}
}

func TestHandlePresenceGoesUnavailable(t *testing.T) {
	client := &fakeClient{}
	r := New(client, nil, 0, nil)

	require.NoError(t, r.HandlePresence(context.Background(), domain.PresenceQuery{From: "62999@s.whatsapp.net"}))
	require.NoError(t, r.HandlePresence(context.Background(), domain.PresenceQuery{From: "62998@s.whatsapp.net"}))

	require.Len(t, client.calls, 2)
	for _, c := range client.calls {
		assert.Equal(t, "presence", c.name)
		assert.Equal(t, domain.PresenceUnavailable, c.presence)
	}
	assert.Equal(t, 2, r.Stats().PresenceAck)
}

func TestHandleMessagesReadsStatusFromOthers(t *testing.T) {
	client := &fakeClient{}
	r := New(client, nil, 0, nil)

	msg := statusMessage("ABC", "62812345@s.whatsapp.net")
	require.NoError(t, r.HandleMessages(context.Background(), domain.MessagesUpsert{Messages: []domain.Message{msg}}))

	require.Len(t, client.calls, 2)
	assert.Equal(t, "read", client.calls[0].name)
	assert.Equal(t, []domain.MessageKey{msg.Key}, client.calls[0].keys)

	send := client.calls[1]
	assert.Equal(t, "send", send.name)
	assert.Equal(t, domain.JID("628111@s.whatsapp.net"), send.to)
	assert.Equal(t, "Read Story @62812345", send.msg.Text)
	assert.Equal(t, []domain.JID{"62812345@s.whatsapp.net"}, send.msg.Mentions)
	require.NotNil(t, send.msg.Quoted)
	assert.Equal(t, msg.Key, send.msg.Quoted.Key)
	assert.Equal(t, 24*time.Hour, send.msg.Ephemeral)
	assert.Equal(t, 1, r.Stats().StatusRead)
}

func TestHandleMessagesIgnoresOtherMessages(t *testing.T) {
	client := &fakeClient{}
	r := New(client, nil, 0, nil)

	own := statusMessage("OWN", "628111@s.whatsapp.net")
	own.Key.FromMe = true
	chat := domain.Message{Key: domain.MessageKey{RemoteJID: "62812345@s.whatsapp.net", ID: "CHAT"}}

	require.NoError(t, r.HandleMessages(context.Background(), domain.MessagesUpsert{Messages: []domain.Message{own, chat}}))
	assert.Empty(t, client.calls)
	assert.Equal(t, 2, r.Stats().Messages)
}

func TestHandleMessagesAcknowledgesEachStatusOnce(t *testing.T) {
	client := &fakeClient{}
	r := New(client, nil, 0, nil)

	msg := statusMessage("DUP", "62812345@s.whatsapp.net")
	up := domain.MessagesUpsert{Messages: []domain.Message{msg}}
	require.NoError(t, r.HandleMessages(context.Background(), up))
	require.NoError(t, r.HandleMessages(context.Background(), up))

	assert.Equal(t, 1, client.count("read"))
	assert.Equal(t, 1, client.count("send"))
	assert.Equal(t, 1, r.Stats().Duplicates)
}

func TestHandleMessagesHandlesEveryStatusInBatch(t *testing.T) {
	client := &fakeClient{}
	r := New(client, nil, 0, nil)

	up := domain.MessagesUpsert{Messages: []domain.Message{
		statusMessage("S1", "62811@s.whatsapp.net"),
		statusMessage("S2", "62822@s.whatsapp.net"),
	}}
	require.NoError(t, r.HandleMessages(context.Background(), up))
	assert.Equal(t, 2, client.count("read"))
	assert.Equal(t, 2, client.count("send"))
}

func TestHandleMessagesRetriesAfterFailure(t *testing.T) {
	client := &fakeClient{readErr: errors.New("socket closed")}
	r := New(client, nil, 0, nil)

	up := domain.MessagesUpsert{Messages: []domain.Message{statusMessage("S1", "62811@s.whatsapp.net")}}
	require.Error(t, r.HandleMessages(context.Background(), up))
	assert.Equal(t, 0, client.count("send"))

	client.readErr = nil
	require.NoError(t, r.HandleMessages(context.Background(), up))
	assert.Equal(t, 2, client.count("read"))
	assert.Equal(t, 1, client.count("send"))
}

func TestHandleMessagesContinuesPastFailedStatus(t *testing.T) {
	client := &fakeClient{failRead: map[string]error{"A": errors.New("transient")}}
	r := New(client, nil, 0, nil)

	up := domain.MessagesUpsert{Messages: []domain.Message{
		statusMessage("A", "62811@s.whatsapp.net"),
		statusMessage("B", "62822@s.whatsapp.net"),
	}}
	err := r.HandleMessages(context.Background(), up)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark status A read")

	assert.Equal(t, 2, client.count("read"))
	require.Equal(t, 1, client.count("send"))
	assert.Equal(t, "Read Story @62822", client.calls[len(client.calls)-1].msg.Text)
	assert.Equal(t, 1, r.Stats().StatusRead)

	// only the failed one is retried on redelivery
	delete(client.failRead, "A")
	require.NoError(t, r.HandleMessages(context.Background(), up))
	assert.Equal(t, 3, client.count("read"))
	assert.Equal(t, 2, client.count("send"))
	assert.Equal(t, 1, r.Stats().Duplicates)
}

func TestSeenFilterWindow(t *testing.T) {
	mock := clock.NewMock()
	f := NewSeenFilter(mock, time.Minute)

	assert.True(t, f.Check("a").First)
	res := f.Check("a")
	assert.False(t, res.First)
	assert.Equal(t, 2, res.Count)

	mock.Add(2 * time.Minute)
	assert.True(t, f.Check("a").First)
	assert.Equal(t, 1, f.Len())
}

func TestSeenFilterForget(t *testing.T) {
	f := NewSeenFilter(nil, 0)
	assert.True(t, f.Check("a").First)
	f.Forget("a")
	assert.True(t, f.Check("a").First)
}
