package models

import "time"

type Conversation struct {
	ID         string  `json:"id" db:"id"`
	User1ID    string  `json:"user1_id" db:"user1_id"`
	User2ID    string  `json:"user2_id" db:"user2_id"`
	PropertyID *string `json:"property_id,omitempty" db:"property_id"`
}

// Other returns the participant that is not userID, or "" if userID is not a participant.
func (c *Conversation) Other(userID string) string {
	switch userID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return ""
}

type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	SenderID       string    `json:"sender_id" db:"sender_id"`
	ReceiverID     string    `json:"receiver_id" db:"receiver_id"`
	Content        string    `json:"content" db:"content"`
	WasFiltered    bool      `json:"was_filtered" db:"was_filtered"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
