package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"gwi.com/chart-bot/internal/supabase"
)

// SupabaseStore talks to the conversations and messages tables through
// PostgREST using the service role key.
type SupabaseStore struct {
	client *resty.Client
}

func NewSupabaseStore(url, serviceKey string, timeout time.Duration) *SupabaseStore {
	return &SupabaseStore{client: supabase.NewClient(url, "/rest/v1", serviceKey, timeout)}
}

func (s *SupabaseStore) Close() error {
	return nil
}

type conversationRow struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	UserID     string       `json:"user_id"`
	IsFavorite bool         `json:"is_favorite"`
	Messages   []messageRow `json:"messages,omitempty"`
}

type messageRow struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Content        string          `json:"content"`
	Type           MessageType     `json:"type"`
	Role           Role            `json:"role"`
	CreatedAt      time.Time       `json:"created_at"`
	ChartData      *ChartData      `json:"chart_data"`
	DiagramData    *DiagramData    `json:"diagram_data"`
	FileAttachment *FileAttachment `json:"file_attachment"`
}

func (r conversationRow) toConversation() Conversation {
	c := Conversation{
		ID:         r.ID,
		Title:      r.Title,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		UserID:     r.UserID,
		IsFavorite: r.IsFavorite,
		Messages:   make([]Message, 0, len(r.Messages)),
	}
	for _, m := range r.Messages {
		c.Messages = append(c.Messages, m.toMessage())
	}
	return c
}

func (r messageRow) toMessage() Message {
	return Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Content:        r.Content,
		Type:           r.Type,
		Role:           r.Role,
		CreatedAt:      r.CreatedAt,
		ChartData:      r.ChartData,
		DiagramData:    r.DiagramData,
		FileAttachment: r.FileAttachment,
	}
}

func (s *SupabaseStore) request(ctx context.Context) *resty.Request {
	return s.client.R().SetContext(ctx).SetHeader("Accept", "application/json")
}

func (s *SupabaseStore) queryConversations(ctx context.Context, params map[string]string) ([]conversationRow, error) {
	q := map[string]string{
		"select":         "*,messages(*)",
		"order":          "updated_at.desc",
		"messages.order": "created_at.asc",
	}
	for k, v := range params {
		q[k] = v
	}

	resp, err := s.request(ctx).SetQueryParams(q).Get("/conversations")
	if err := supabase.CheckResponse(resp, err, "query conversations"); err != nil {
		return nil, err
	}
	var rows []conversationRow
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse conversations: %w", err)
	}
	return rows, nil
}

func (s *SupabaseStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.queryConversations(ctx, map[string]string{"user_id": "eq." + userID})
	if err != nil {
		return nil, err
	}
	conversations := make([]Conversation, 0, len(rows))
	for _, r := range rows {
		conversations = append(conversations, r.toConversation())
	}
	return conversations, nil
}

func (s *SupabaseStore) GetConversation(ctx context.Context, id, userID string) (*Conversation, error) {
	rows, err := s.queryConversations(ctx, map[string]string{
		"id":      "eq." + id,
		"user_id": "eq." + userID,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil // Not found
	}
	c := rows[0].toConversation()
	return &c, nil
}

func (s *SupabaseStore) requireConversation(ctx context.Context, id, userID string) (*Conversation, error) {
	c, err := s.GetConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *SupabaseStore) CreateConversation(ctx context.Context, userID, title string) (*Conversation, error) {
	now := time.Now().UTC()
	row := conversationRow{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
	}

	var created []conversationRow
	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(row).
		Post("/conversations")
	if err := supabase.CheckResponse(resp, err, "create conversation"); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, fmt.Errorf("failed to parse created conversation: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to create conversation: empty representation")
	}
	c := created[0].toConversation()
	return &c, nil
}

func (s *SupabaseStore) patchConversation(ctx context.Context, id, userID string, body map[string]any) error {
	body["updated_at"] = time.Now().UTC()

	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(map[string]string{
			"id":      "eq." + id,
			"user_id": "eq." + userID,
		}).
		SetBody(body).
		Patch("/conversations")
	if err := supabase.CheckResponse(resp, err, "update conversation"); err != nil {
		return err
	}
	var updated []conversationRow
	if err := json.Unmarshal(resp.Body(), &updated); err != nil {
		return fmt.Errorf("failed to parse updated conversation: %w", err)
	}
	if len(updated) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SupabaseStore) UpdateConversation(ctx context.Context, id, userID string, update ConversationUpdate) (*Conversation, error) {
	body := map[string]any{}
	if update.Title != nil {
		body["title"] = *update.Title
	}
	if update.IsFavorite != nil {
		body["is_favorite"] = *update.IsFavorite
	}
	if err := s.patchConversation(ctx, id, userID, body); err != nil {
		return nil, err
	}
	return s.requireConversation(ctx, id, userID)
}

func (s *SupabaseStore) ToggleFavorite(ctx context.Context, id, userID string) (bool, error) {
	c, err := s.requireConversation(ctx, id, userID)
	if err != nil {
		return false, err
	}
	favorite := !c.IsFavorite
	if err := s.patchConversation(ctx, id, userID, map[string]any{"is_favorite": favorite}); err != nil {
		return false, err
	}
	return favorite, nil
}

func (s *SupabaseStore) DeleteConversation(ctx context.Context, id, userID string) error {
	if _, err := s.requireConversation(ctx, id, userID); err != nil {
		return err
	}

	resp, err := s.request(ctx).
		SetQueryParam("conversation_id", "eq."+id).
		Delete("/messages")
	if err := supabase.CheckResponse(resp, err, "delete messages"); err != nil {
		return err
	}

	resp, err = s.request(ctx).
		SetQueryParams(map[string]string{
			"id":      "eq." + id,
			"user_id": "eq." + userID,
		}).
		Delete("/conversations")
	return supabase.CheckResponse(resp, err, "delete conversation")
}

func (s *SupabaseStore) AddMessage(ctx context.Context, conversationID, userID string, msg *Message) error {
	if err := ValidateMessage(msg); err != nil {
		return err
	}
	if _, err := s.requireConversation(ctx, conversationID, userID); err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ConversationID = conversationID
	msg.CreatedAt = time.Now().UTC()

	row := messageRow{
		ID:             msg.ID,
		ConversationID: conversationID,
		Content:        msg.Content,
		Type:           msg.Type,
		Role:           msg.Role,
		CreatedAt:      msg.CreatedAt,
		ChartData:      msg.ChartData,
		DiagramData:    msg.DiagramData,
		FileAttachment: msg.FileAttachment,
	}
	resp, err := s.request(ctx).SetBody(row).Post("/messages")
	if err := supabase.CheckResponse(resp, err, "insert message"); err != nil {
		return err
	}
	return s.patchConversation(ctx, conversationID, userID, map[string]any{})
}

func (s *SupabaseStore) DeleteMessage(ctx context.Context, conversationID, messageID, userID string) error {
	if _, err := s.requireConversation(ctx, conversationID, userID); err != nil {
		return err
	}

	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(map[string]string{
			"id":              "eq." + messageID,
			"conversation_id": "eq." + conversationID,
		}).
		Delete("/messages")
	if err := supabase.CheckResponse(resp, err, "delete message"); err != nil {
		return err
	}
	var deleted []messageRow
	if err := json.Unmarshal(resp.Body(), &deleted); err != nil {
		return fmt.Errorf("failed to parse deleted message: %w", err)
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SupabaseStore) UpdateChartTitle(ctx context.Context, conversationID, messageID, userID, title string) error {
	c, err := s.requireConversation(ctx, conversationID, userID)
	if err != nil {
		return err
	}

	var chart *ChartData
	for _, m := range c.Messages {
		if m.ID == messageID {
			if m.ChartData == nil {
				return fmt.Errorf("%w: message %s has no chart", ErrInvalidMessage, messageID)
			}
			updated := *m.ChartData
			chart = &updated
			break
		}
	}
	if chart == nil {
		return ErrNotFound
	}
	chart.Title = title

	resp, err := s.request(ctx).
		SetQueryParams(map[string]string{
			"id":              "eq." + messageID,
			"conversation_id": "eq." + conversationID,
		}).
		SetBody(map[string]any{"chart_data": chart}).
		Patch("/messages")
	return supabase.CheckResponse(resp, err, "update chart title")
}
