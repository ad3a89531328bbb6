package database

import (
	"context"
	"fmt"

	"github.com/rawlink/marketplace/backend/internal/models"
)

// CreateMessage persists a chat message with a server-assigned timestamp.
func CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	err := DB.QueryRow(ctx,
		`INSERT INTO messages (sender_id, receiver_id, content) VALUES ($1, $2, $3)
		 RETURNING id, timestamp`,
		senderID, receiverID, content,
	).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("insert message from %d to %d: %w", senderID, receiverID, err)
	}
	return msg, nil
}

// GetUserMessages returns all messages the user sent or received,
// oldest first.
func GetUserMessages(ctx context.Context, userID int64) ([]*models.Message, error) {
	return queryMessages(ctx,
		`SELECT id, sender_id, receiver_id, content, timestamp
		 FROM messages
		 WHERE sender_id = $1 OR receiver_id = $1
		 ORDER BY timestamp ASC, id ASC`,
		userID,
	)
}

// ConversationHistory returns both directions of the conversation between two
// users, oldest first for history replay.
func ConversationHistory(ctx context.Context, userID, otherID int64) ([]*models.Message, error) {
	return queryMessages(ctx,
		`SELECT id, sender_id, receiver_id, content, timestamp
		 FROM messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY timestamp ASC, id ASC`,
		userID, otherID,
	)
}

// ChatStore bundles the message and user lookups the chat relay needs.
type ChatStore struct{}

func (ChatStore) CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	return CreateMessage(ctx, senderID, receiverID, content)
}

func (ChatStore) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	return GetUserByID(ctx, userID)
}

func (ChatStore) ConversationHistory(ctx context.Context, userID, otherID int64) ([]*models.Message, error) {
	return ConversationHistory(ctx, userID, otherID)
}

func queryMessages(ctx context.Context, query string, args ...interface{}) ([]*models.Message, error) {
	rows, err := DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate message rows: %w", rows.Err())
	}
	return messages, nil
}
