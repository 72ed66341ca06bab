package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore is the local development backend.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT NOT NULL DEFAULT '',
        is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id, updated_at);

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        conversation_id TEXT NOT NULL,
        content TEXT NOT NULL,
        type TEXT NOT NULL CHECK (type IN ('text', 'chart', 'diagram')),
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        created_at DATETIME NOT NULL,
        chart_data TEXT,
        diagram_data TEXT,
        file_attachment TEXT,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id) ON DELETE CASCADE
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

const conversationColumns = "id, user_id, title, is_favorite, created_at, updated_at"

func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.IsFavorite, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Messages = []Message{}
	return &c, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE user_id = ? ORDER BY updated_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		conversations = append(conversations, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	for i := range conversations {
		msgs, err := s.messages(ctx, conversations[i].ID)
		if err != nil {
			return nil, err
		}
		conversations[i].Messages = msgs
	}
	return conversations, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id, userID string) (*Conversation, error) {
	c, err := s.conversation(ctx, id, userID)
	if err != nil || c == nil {
		return c, err
	}
	c.Messages, err = s.messages(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteStore) conversation(ctx context.Context, id, userID string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = ? AND user_id = ?", id, userID)
	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, userID, title string) (*Conversation, error) {
	c := &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []Message{},
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	c.UpdatedAt = c.CreatedAt

	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO conversations (id, user_id, title, is_favorite, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare conversation insert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.ExecContext(ctx, c.ID, c.UserID, c.Title, c.IsFavorite, c.CreatedAt, c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to execute conversation insert: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) UpdateConversation(ctx context.Context, id, userID string, update ConversationUpdate) (*Conversation, error) {
	c, err := s.conversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if update.Title != nil {
		c.Title = *update.Title
	}
	if update.IsFavorite != nil {
		c.IsFavorite = *update.IsFavorite
	}
	c.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		"UPDATE conversations SET title = ?, is_favorite = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		c.Title, c.IsFavorite, c.UpdatedAt, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	c.Messages, err = s.messages(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteStore) ToggleFavorite(ctx context.Context, id, userID string) (bool, error) {
	c, err := s.conversation(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, ErrNotFound
	}

	favorite := !c.IsFavorite
	if _, err := s.UpdateConversation(ctx, id, userID, ConversationUpdate{IsFavorite: &favorite}); err != nil {
		return false, err
	}
	return favorite, nil
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owned int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations WHERE id = ? AND user_id = ?", id, userID).Scan(&owned)
	if err != nil {
		return fmt.Errorf("failed to check conversation: %w", err)
	}
	if owned == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) AddMessage(ctx context.Context, conversationID, userID string, msg *Message) error {
	if err := ValidateMessage(msg); err != nil {
		return err
	}
	c, err := s.conversation(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ConversationID = conversationID
	msg.CreatedAt = time.Now().UTC()

	chart, err := jsonColumn(msg.ChartData)
	if err != nil {
		return err
	}
	diagram, err := jsonColumn(msg.DiagramData)
	if err != nil {
		return err
	}
	attachment, err := jsonColumn(msg.FileAttachment)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, content, type, role, created_at, chart_data, diagram_data, file_attachment)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, msg.Content, string(msg.Type), string(msg.Role), msg.CreatedAt, chart, diagram, attachment)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE conversations SET updated_at = ? WHERE id = ?", msg.CreatedAt, conversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteMessage(ctx context.Context, conversationID, messageID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ? AND conversation_id IN
         (SELECT id FROM conversations WHERE id = ? AND user_id = ?)`,
		messageID, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateChartTitle(ctx context.Context, conversationID, messageID, userID, title string) error {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT m.chart_data FROM messages m JOIN conversations c ON c.id = m.conversation_id
         WHERE m.id = ? AND c.id = ? AND c.user_id = ?`,
		messageID, conversationID, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get message: %w", err)
	}
	if !raw.Valid {
		return fmt.Errorf("%w: message %s has no chart", ErrInvalidMessage, messageID)
	}

	var chart ChartData
	if err := json.Unmarshal([]byte(raw.String), &chart); err != nil {
		return fmt.Errorf("failed to decode chart data: %w", err)
	}
	chart.Title = title
	updated, err := jsonColumn(&chart)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE messages SET chart_data = ? WHERE id = ?", updated, messageID); err != nil {
		return fmt.Errorf("failed to update chart title: %w", err)
	}
	return nil
}

func (s *SQLiteStore) messages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, content, type, role, created_at, chart_data, diagram_data, file_attachment
         FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		var chart, diagram, attachment sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.Type, &msg.Role, &msg.CreatedAt,
			&chart, &diagram, &attachment); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if err := decodeColumn(chart, &msg.ChartData); err != nil {
			return nil, err
		}
		if err := decodeColumn(diagram, &msg.DiagramData); err != nil {
			return nil, err
		}
		if err := decodeColumn(attachment, &msg.FileAttachment); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

func jsonColumn[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeColumn[T any](col sql.NullString, dst **T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}
	*dst = &v
	return nil
}
