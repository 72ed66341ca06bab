package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	c, err := s.CreateConversation(ctx, "alice", "Sales")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.IsFavorite)

	got, err := s.GetConversation(ctx, c.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sales", got.Title)
	assert.Empty(t, got.Messages)

	title := "Quarterly sales"
	updated, err := s.UpdateConversation(ctx, c.ID, "alice", ConversationUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	fav, err := s.ToggleFavorite(ctx, c.ID, "alice")
	require.NoError(t, err)
	assert.True(t, fav)
	fav, err = s.ToggleFavorite(ctx, c.ID, "alice")
	require.NoError(t, err)
	assert.False(t, fav)

	require.NoError(t, s.DeleteConversation(ctx, c.ID, "alice"))
	got, err = s.GetConversation(ctx, c.ID, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteScopesByUser(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	c, err := s.CreateConversation(ctx, "alice", "Private")
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, c.ID, "bob")
	require.NoError(t, err)
	assert.Nil(t, got)

	title := "stolen"
	_, err = s.UpdateConversation(ctx, c.ID, "bob", ConversationUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ToggleFavorite(ctx, c.ID, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteConversation(ctx, c.ID, "bob"), ErrNotFound)
	assert.ErrorIs(t, s.AddMessage(ctx, c.ID, "bob", &Message{Content: "hi", Type: MessageText, Role: RoleUser}), ErrNotFound)

	list, err := s.ListConversations(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	older, err := s.CreateConversation(ctx, "alice", "Older")
	require.NoError(t, err)
	c, err := s.CreateConversation(ctx, "alice", "Charts")
	require.NoError(t, err)

	prompt := &Message{Content: "bar chart of sales", Type: MessageText, Role: RoleUser}
	require.NoError(t, s.AddMessage(ctx, older.ID, "alice", prompt))

	chart := &Message{
		Content: "Sales",
		Type:    MessageChart,
		Role:    RoleAssistant,
		ChartData: &ChartData{
			Type:  "bar",
			Title: "Sales",
			Data:  []any{map[string]any{"name": "Q1", "value": 10.0}},
		},
		FileAttachment: &FileAttachment{Name: "sales.csv", Type: "text/csv"},
	}
	require.NoError(t, s.AddMessage(ctx, older.ID, "alice", chart))
	assert.NotEmpty(t, chart.ID)

	// Adding messages bumps the older conversation to the top.
	list, err := s.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, c.ID, list[1].ID)
	require.Len(t, list[0].Messages, 2)
	assert.Equal(t, prompt.ID, list[0].Messages[0].ID)
	assert.Equal(t, "Q1", list[0].Messages[1].ChartData.Data[0].(map[string]any)["name"])
	assert.Equal(t, "sales.csv", list[0].Messages[1].FileAttachment.Name)

	require.NoError(t, s.UpdateChartTitle(ctx, older.ID, chart.ID, "alice", "Revenue"))
	got, err := s.GetConversation(ctx, older.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Revenue", got.Messages[1].ChartData.Title)

	err = s.UpdateChartTitle(ctx, older.ID, prompt.ID, "alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.ErrorIs(t, s.UpdateChartTitle(ctx, older.ID, chart.ID, "bob", "nope"), ErrNotFound)

	assert.ErrorIs(t, s.DeleteMessage(ctx, older.ID, chart.ID, "bob"), ErrNotFound)
	require.NoError(t, s.DeleteMessage(ctx, older.ID, chart.ID, "alice"))
	assert.ErrorIs(t, s.DeleteMessage(ctx, older.ID, chart.ID, "alice"), ErrNotFound)

	require.NoError(t, s.DeleteConversation(ctx, older.ID, "alice"))
	var remaining int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE conversation_id = ?", older.ID).Scan(&remaining))
	assert.Zero(t, remaining)
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"text", Message{Type: MessageText, Role: RoleUser}, true},
		{"diagram", Message{Type: MessageDiagram, Role: RoleAssistant, DiagramData: &DiagramData{}}, true},
		{"unknown type", Message{Type: "video", Role: RoleUser}, false},
		{"unknown role", Message{Type: MessageText, Role: "system"}, false},
		{"chart without data", Message{Type: MessageChart, Role: RoleAssistant}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(&tt.msg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			}
		})
	}
}
