package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/metrics"
	"github.com/rawlink/marketplace/backend/internal/models"
)

// Store is the persistence surface the relay needs: messages are durable
// before any delivery attempt, and receivers are resolved against the user
// registry.
type Store interface {
	CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	ConversationHistory(ctx context.Context, userID, otherID int64) ([]*models.Message, error)
}

// InboundFrame is the JSON shape clients send over the connection.
type InboundFrame struct {
	Message    string `json:"message"`
	ReceiverID int64  `json:"receiver_id"`
}

// OutboundMessage is the JSON shape broadcast to delivery groups.
type OutboundMessage struct {
	ID               int64  `json:"id"`
	SenderID         int64  `json:"sender_id"`
	SenderUsername   string `json:"sender_username"`
	ReceiverID       int64  `json:"receiver_id"`
	ReceiverUsername string `json:"receiver_username"`
	Content          string `json:"content"`
	Timestamp        string `json:"timestamp"`
}

// Relay persists chat messages and fans them out to the sender's and
// receiver's delivery groups.
type Relay struct {
	hub   *Hub
	store Store
}

// GlobalRelay is the process-wide relay instance wired at startup.
var GlobalRelay *Relay

// NewRelay builds a relay over the given hub and store.
func NewRelay(hub *Hub, store Store) *Relay {
	return &Relay{hub: hub, store: store}
}

// InitChat creates and installs the global hub and relay.
func InitChat(store Store) {
	GlobalHub = NewHub()
	GlobalRelay = NewRelay(GlobalHub, store)
}

// SendMessage validates, persists and broadcasts one chat message.
// Persistence is authoritative: once the record is written the send has
// succeeded, and fan-out failure to either group cannot undo it.
func (r *Relay) SendMessage(ctx context.Context, sender *models.User, receiverID int64, content string) (*OutboundMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" || receiverID == 0 {
		return nil, apperr.New(apperr.Validation, apperr.CodeInvalidMessage,
			"message content and receiver_id are required")
	}

	receiver, err := r.store.GetUserByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, apperr.New(apperr.NotFound, apperr.CodeReceiverNotFound, "receiver not found")
	}

	msg, err := r.store.CreateMessage(ctx, sender.ID, receiver.ID, content)
	if err != nil {
		return nil, err
	}

	out := &OutboundMessage{
		ID:               msg.ID,
		SenderID:         sender.ID,
		SenderUsername:   sender.Username,
		ReceiverID:       receiver.ID,
		ReceiverUsername: receiver.Username,
		Content:          msg.Content,
		Timestamp:        msg.Timestamp.Format(time.RFC3339),
	}

	payload, err := json.Marshal(out)
	if err != nil {
		// The record is already durable; the send still counts.
		log.Error().Err(err).Int64("message_id", msg.ID).Msg("marshal outbound message")
		return out, nil
	}

	r.hub.Broadcast(receiver.ID, payload)
	if sender.ID != receiver.ID {
		r.hub.Broadcast(sender.ID, payload)
	}

	metrics.RecordMessageRelayed()
	return out, nil
}

// History returns the full conversation between the caller and another user,
// oldest first.
func (r *Relay) History(ctx context.Context, userID, otherID int64) ([]*models.Message, error) {
	other, err := r.store.GetUserByID(ctx, otherID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, apperr.New(apperr.NotFound, apperr.CodeUserNotFound, "user not found")
	}
	return r.store.ConversationHistory(ctx, userID, otherID)
}
