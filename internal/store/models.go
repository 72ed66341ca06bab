package store

import "time"

type MessageType string

const (
	MessageText    MessageType = "text"
	MessageChart   MessageType = "chart"
	MessageDiagram MessageType = "diagram"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	UserID     string    `json:"userId"`
	IsFavorite bool      `json:"isFavorite"`
}

type ChartData struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Data        []any  `json:"data"`
}

type DiagramData struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

type FileAttachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Data any    `json:"data,omitempty"`
}

type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	Content        string          `json:"content"`
	Type           MessageType     `json:"type"`
	Role           Role            `json:"role"`
	CreatedAt      time.Time       `json:"createdAt"`
	ChartData      *ChartData      `json:"chartData,omitempty"`
	DiagramData    *DiagramData    `json:"diagramData,omitempty"`
	FileAttachment *FileAttachment `json:"fileAttachment,omitempty"`
}

// ConversationUpdate carries the optional fields of a conversation PATCH.
type ConversationUpdate struct {
	Title      *string `json:"title,omitempty"`
	IsFavorite *bool   `json:"isFavorite,omitempty"`
}
