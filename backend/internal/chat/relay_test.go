package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/models"
)

type fakeChatStore struct {
	users    map[int64]*models.User
	messages []*models.Message
	nextID   int64
}

func newFakeChatStore(users ...*models.User) *fakeChatStore {
	s := &fakeChatStore{users: make(map[int64]*models.User), nextID: 1}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeChatStore) CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	msg := &models.Message{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  time.Now().UTC(),
	}
	s.nextID++
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *fakeChatStore) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	return s.users[userID], nil
}

func (s *fakeChatStore) ConversationHistory(ctx context.Context, userID, otherID int64) ([]*models.Message, error) {
	var out []*models.Message
	for _, m := range s.messages {
		if (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

var (
	alice = &models.User{ID: 1, Username: "alice", Role: models.RoleBuyer}
	bob   = &models.User{ID: 2, Username: "bob", Role: models.RoleVendor}
)

func TestSendMessagePersistsThenBroadcasts(t *testing.T) {
	store := newFakeChatStore(alice, bob)
	hub := NewHub()
	relay := NewRelay(hub, store)

	aliceConn := NewClient(alice.ID, alice.Username, nil)
	aliceEcho := NewClient(alice.ID, alice.Username, nil)
	bobConn := NewClient(bob.ID, bob.Username, nil)
	hub.Register(aliceConn)
	hub.Register(aliceEcho)
	hub.Register(bobConn)

	out, err := relay.SendMessage(context.Background(), alice, bob.ID, "got any copper?")
	require.NoError(t, err)

	assert.Equal(t, alice.ID, out.SenderID)
	assert.Equal(t, "alice", out.SenderUsername)
	assert.Equal(t, bob.ID, out.ReceiverID)
	assert.Equal(t, "bob", out.ReceiverUsername)
	assert.Equal(t, "got any copper?", out.Content)
	_, err = time.Parse(time.RFC3339, out.Timestamp)
	assert.NoError(t, err, "timestamp must be RFC 3339")

	require.Len(t, store.messages, 1)

	// receiver, the sender's own connection and the sender's second device
	// all get the same frame
	for _, c := range []*Client{bobConn, aliceConn, aliceEcho} {
		payload := <-c.Send
		var frame OutboundMessage
		require.NoError(t, json.Unmarshal(payload, &frame))
		assert.Equal(t, out.ID, frame.ID)
		assert.Equal(t, "got any copper?", frame.Content)
	}
}

func TestSendMessageRejectsInvalidFrames(t *testing.T) {
	store := newFakeChatStore(alice, bob)
	relay := NewRelay(NewHub(), store)
	ctx := context.Background()

	_, err := relay.SendMessage(ctx, alice, bob.ID, "   ")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidMessage))

	_, err = relay.SendMessage(ctx, alice, 0, "hello")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidMessage))

	assert.Empty(t, store.messages, "rejected frames must not be persisted")
}

func TestSendMessageUnknownReceiver(t *testing.T) {
	store := newFakeChatStore(alice)
	relay := NewRelay(NewHub(), store)

	_, err := relay.SendMessage(context.Background(), alice, 999, "anyone there?")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeReceiverNotFound))
	assert.Empty(t, store.messages)
}

func TestSendMessageWithoutSubscribersStillPersists(t *testing.T) {
	// delivery is best-effort; persistence is authoritative
	store := newFakeChatStore(alice, bob)
	relay := NewRelay(NewHub(), store)

	out, err := relay.SendMessage(context.Background(), alice, bob.ID, "offline note")
	require.NoError(t, err)
	assert.NotZero(t, out.ID)
	assert.Len(t, store.messages, 1)
}

func TestHistoryOldestFirstBothDirections(t *testing.T) {
	store := newFakeChatStore(alice, bob)
	relay := NewRelay(NewHub(), store)
	ctx := context.Background()

	_, err := relay.SendMessage(ctx, alice, bob.ID, "first")
	require.NoError(t, err)
	_, err = relay.SendMessage(ctx, bob, alice.ID, "second")
	require.NoError(t, err)
	_, err = relay.SendMessage(ctx, alice, bob.ID, "third")
	require.NoError(t, err)

	history, err := relay.History(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, "third", history[2].Content)
}

func TestHistoryUnknownCounterparty(t *testing.T) {
	relay := NewRelay(NewHub(), newFakeChatStore(alice))

	_, err := relay.History(context.Background(), alice.ID, 999)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeUserNotFound))
}
