package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rentease/backend/internal/models"
)

type MessageService struct {
	db       *sql.DB
	notifier Notifier
}

func NewMessageService(db *sql.DB, notifier Notifier) *MessageService {
	return &MessageService{db: db, notifier: notifier}
}

// Send stores a filtered message from senderID to the other participant.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	receiverID := conv.Other(senderID)
	if receiverID == "" {
		return nil, ErrNotParticipant
	}

	if ShouldBlock(content) {
		return nil, ErrMessageBlocked
	}
	filtered := FilterContent(content)

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        filtered.Content,
		WasFiltered:    filtered.WasFiltered,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, content, was_filtered)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Content, msg.WasFiltered,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	s.notifier.Emit(ctx, models.Notification{
		UserID:  receiverID,
		Type:    models.NotificationNewMessage,
		Title:   "New Message",
		Message: "You have a new message.",
		Data:    models.Metadata{"conversationId": conversationID, "messageId": msg.ID},
	})

	return msg, nil
}

// List returns the conversation oldest first if userID takes part in it.
func (s *MessageService) List(ctx context.Context, conversationID, userID string, limit int) ([]models.Message, error) {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Other(userID) == "" {
		return nil, ErrNotParticipant
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, receiver_id, content, was_filtered, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Content, &m.WasFiltered, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// conversation reports a missing conversation as ErrNotParticipant.
func (s *MessageService) conversation(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	var propertyID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id, property_id FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.User1ID, &c.User2ID, &propertyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotParticipant
	}
	if err != nil {
		return nil, err
	}
	if propertyID.Valid {
		c.PropertyID = &propertyID.String
	}
	return &c, nil
}
