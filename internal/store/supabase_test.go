package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/chart-bot/internal/supabase"
)

const listBody = `[{
  "id": "c1", "title": "Sales", "user_id": "alice", "is_favorite": true,
  "created_at": "2024-05-01T10:00:00.123456+00:00",
  "updated_at": "2024-05-02T10:00:00+00:00",
  "messages": [
    {"id": "m1", "conversation_id": "c1", "content": "chart please", "type": "text", "role": "user",
     "created_at": "2024-05-01T10:00:01+00:00", "chart_data": null, "diagram_data": null, "file_attachment": null},
    {"id": "m2", "conversation_id": "c1", "content": "Sales", "type": "chart", "role": "assistant",
     "created_at": "2024-05-01T10:00:02+00:00",
     "chart_data": {"type": "bar", "title": "Sales", "description": "", "data": [{"name": "Q1", "value": 3}]},
     "diagram_data": null, "file_attachment": null}
  ]
}]`

func newTestSupabaseStore(t *testing.T, h http.HandlerFunc) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewSupabaseStore(srv.URL, "service-key", 5*time.Second)
}

func TestSupabaseListConversations(t *testing.T) {
	s := newTestSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/conversations", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "eq.alice", q.Get("user_id"))
		assert.Equal(t, "updated_at.desc", q.Get("order"))
		assert.Equal(t, "*,messages(*)", q.Get("select"))
		assert.Equal(t, "created_at.asc", q.Get("messages.order"))
		io.WriteString(w, listBody)
	})

	list, err := s.ListConversations(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)

	c := list[0]
	assert.Equal(t, "Sales", c.Title)
	assert.True(t, c.IsFavorite)
	assert.Equal(t, 2024, c.CreatedAt.Year())
	require.Len(t, c.Messages, 2)
	assert.Equal(t, MessageChart, c.Messages[1].Type)
	assert.Equal(t, "bar", c.Messages[1].ChartData.Type)
}

func TestSupabaseGetConversationMissing(t *testing.T) {
	s := newTestSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.c9", r.URL.Query().Get("id"))
		io.WriteString(w, `[]`)
	})

	c, err := s.GetConversation(context.Background(), "c9", "alice")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = s.ToggleFavorite(context.Background(), "c9", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabaseCreateConversation(t *testing.T) {
	s := newTestSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var row map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, "alice", row["user_id"])
		assert.Equal(t, "New chat", row["title"])
		assert.NotEmpty(t, row["id"])

		row["is_favorite"] = false
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]any{row})
	})

	c, err := s.CreateConversation(context.Background(), "alice", "New chat")
	require.NoError(t, err)
	assert.Equal(t, "New chat", c.Title)
	assert.Equal(t, "alice", c.UserID)
	assert.NotNil(t, c.Messages)
}

func TestSupabaseDeleteMessage(t *testing.T) {
	var found atomic.Bool
	s := newTestSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, listBody)
		case http.MethodDelete:
			assert.Equal(t, "/rest/v1/messages", r.URL.Path)
			assert.Equal(t, "eq.m2", r.URL.Query().Get("id"))
			assert.Equal(t, "eq.c1", r.URL.Query().Get("conversation_id"))
			if found.Load() {
				io.WriteString(w, `[{"id": "m2"}]`)
				return
			}
			io.WriteString(w, `[]`)
		}
	})

	assert.ErrorIs(t, s.DeleteMessage(context.Background(), "c1", "m2", "alice"), ErrNotFound)

	found.Store(true)
	assert.NoError(t, s.DeleteMessage(context.Background(), "c1", "m2", "alice"))
}

func TestSupabaseUpdateChartTitle(t *testing.T) {
	var patched map[string]ChartData
	s := newTestSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, listBody)
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	require.NoError(t, s.UpdateChartTitle(ctx, "c1", "m2", "alice", "Revenue"))
	assert.Equal(t, "Revenue", patched["chart_data"].Title)
	assert.Equal(t, "bar", patched["chart_data"].Type)

	assert.ErrorIs(t, s.UpdateChartTitle(ctx, "c1", "m1", "alice", "x"), ErrInvalidMessage)
	assert.ErrorIs(t, s.UpdateChartTitle(ctx, "c1", "m7", "alice", "x"), ErrNotFound)
}

func TestSupabaseErrorStatus(t *testing.T) {
	s := newTestSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"JWT expired"}`, http.StatusUnauthorized)
	})

	_, err := s.ListConversations(context.Background(), "alice")
	var apiErr *supabase.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Body, "JWT expired")
}

type recordedRequest struct {
	method string
	path   string
	query  map[string]string
	body   map[string]any
}

// restRecorder answers GETs with listBody and writes with a one-row
// representation, keeping every request in arrival order.
type restRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (rr *restRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := recordedRequest{method: r.Method, path: r.URL.Path, query: map[string]string{}}
	for k, v := range r.URL.Query() {
		req.query[k] = v[0]
	}
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &req.body)
	}
	rr.mu.Lock()
	rr.requests = append(rr.requests, req)
	rr.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		io.WriteString(w, listBody)
	default:
		io.WriteString(w, `[{"id": "c1", "user_id": "alice"}]`)
	}
}

// writes drops the reads so tests can assert on mutations alone.
func (rr *restRecorder) writes() []recordedRequest {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	var out []recordedRequest
	for _, r := range rr.requests {
		if r.method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

func newRecordedSupabaseStore(t *testing.T) (*SupabaseStore, *restRecorder) {
	t.Helper()
	rr := &restRecorder{}
	return newTestSupabaseStore(t, rr.ServeHTTP), rr
}

func TestSupabaseDeleteConversationDeletesMessagesFirst(t *testing.T) {
	s, rr := newRecordedSupabaseStore(t)

	require.NoError(t, s.DeleteConversation(context.Background(), "c1", "alice"))

	writes := rr.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, http.MethodDelete, writes[0].method)
	assert.Equal(t, "/rest/v1/messages", writes[0].path)
	assert.Equal(t, map[string]string{"conversation_id": "eq.c1"}, writes[0].query)

	assert.Equal(t, http.MethodDelete, writes[1].method)
	assert.Equal(t, "/rest/v1/conversations", writes[1].path)
	assert.Equal(t, map[string]string{"id": "eq.c1", "user_id": "eq.alice"}, writes[1].query)
}

func TestSupabaseAddMessageBumpsUpdatedAt(t *testing.T) {
	s, rr := newRecordedSupabaseStore(t)

	msg := &Message{Content: "hello", Type: MessageText, Role: RoleUser}
	require.NoError(t, s.AddMessage(context.Background(), "c1", "alice", msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "c1", msg.ConversationID)

	writes := rr.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, http.MethodPost, writes[0].method)
	assert.Equal(t, "/rest/v1/messages", writes[0].path)
	assert.Equal(t, msg.ID, writes[0].body["id"])
	assert.Equal(t, "c1", writes[0].body["conversation_id"])
	assert.Equal(t, "hello", writes[0].body["content"])

	assert.Equal(t, http.MethodPatch, writes[1].method)
	assert.Equal(t, "/rest/v1/conversations", writes[1].path)
	assert.Equal(t, "eq.c1", writes[1].query["id"])
	assert.Equal(t, "eq.alice", writes[1].query["user_id"])
	require.Contains(t, writes[1].body, "updated_at")
	_, err := time.Parse(time.RFC3339Nano, writes[1].body["updated_at"].(string))
	assert.NoError(t, err)
}

func TestSupabaseAddMessageRejectsInvalid(t *testing.T) {
	s, rr := newRecordedSupabaseStore(t)

	err := s.AddMessage(context.Background(), "c1", "alice", &Message{Content: "x", Type: "video", Role: RoleUser})
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Empty(t, rr.requests)
}

func TestSupabaseUpdateConversation(t *testing.T) {
	s, rr := newRecordedSupabaseStore(t)

	title := "Renamed"
	c, err := s.UpdateConversation(context.Background(), "c1", "alice", ConversationUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)

	writes := rr.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPatch, writes[0].method)
	assert.Equal(t, "Renamed", writes[0].body["title"])
	assert.NotContains(t, writes[0].body, "is_favorite")
	assert.Contains(t, writes[0].body, "updated_at")
}

func TestSupabaseToggleFavorite(t *testing.T) {
	s, rr := newRecordedSupabaseStore(t)

	// listBody has the conversation favorited already.
	favorite, err := s.ToggleFavorite(context.Background(), "c1", "alice")
	require.NoError(t, err)
	assert.False(t, favorite)

	writes := rr.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPatch, writes[0].method)
	assert.Equal(t, false, writes[0].body["is_favorite"])
	assert.Equal(t, "eq.c1", writes[0].query["id"])
}

func TestSupabasePatchMissingConversation(t *testing.T) {
	var patched atomic.Bool
	s := newTestSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			patched.Store(true)
		}
		io.WriteString(w, `[]`)
	})

	title := "x"
	_, err := s.UpdateConversation(context.Background(), "c9", "alice", ConversationUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, patched.Load())
}
