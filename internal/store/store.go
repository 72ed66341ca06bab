package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidMessage = errors.New("invalid message")
)

// ConversationStore persists conversations and their messages. Every call is
// scoped to the owning user; rows of other users behave as ErrNotFound.
type ConversationStore interface {
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	// GetConversation returns (nil, nil) when the conversation does not exist.
	GetConversation(ctx context.Context, id, userID string) (*Conversation, error)
	CreateConversation(ctx context.Context, userID, title string) (*Conversation, error)
	UpdateConversation(ctx context.Context, id, userID string, update ConversationUpdate) (*Conversation, error)
	ToggleFavorite(ctx context.Context, id, userID string) (bool, error)
	DeleteConversation(ctx context.Context, id, userID string) error
	AddMessage(ctx context.Context, conversationID, userID string, msg *Message) error
	DeleteMessage(ctx context.Context, conversationID, messageID, userID string) error
	UpdateChartTitle(ctx context.Context, conversationID, messageID, userID, title string) error
	Close() error
}

// ValidateMessage rejects unknown type or role tags before they reach a backend.
func ValidateMessage(msg *Message) error {
	switch msg.Type {
	case MessageText, MessageChart, MessageDiagram:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
	switch msg.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, msg.Role)
	}
	if msg.Type == MessageChart && msg.ChartData == nil {
		return fmt.Errorf("%w: chart message without chart data", ErrInvalidMessage)
	}
	if msg.Type == MessageDiagram && msg.DiagramData == nil {
		return fmt.Errorf("%w: diagram message without diagram data", ErrInvalidMessage)
	}
	return nil
}
