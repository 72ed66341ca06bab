package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	p, err := CleanPath("/conv-1//171-abc.csv")
	require.NoError(t, err)
	assert.Equal(t, "conv-1/171-abc.csv", p)

	for _, bad := range []string{"", "   ", "/", "../etc/passwd", "conv/../../x"} {
		_, err := CleanPath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "/api/files/")
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "conv-1/a.csv", "text/csv", []byte("x,y\n1,2\n")))
	assert.Error(t, s.Upload(ctx, "conv-1/a.csv", "text/csv", []byte("again")), "no upsert")

	data, err := s.Download(ctx, "conv-1/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "x,y\n1,2\n", string(data))
	assert.Equal(t, "/api/files/conv-1/a.csv", s.PublicURL("conv-1/a.csv"))

	require.NoError(t, s.Delete(ctx, "conv-1/a.csv"))
	_, err = s.Download(ctx, "conv-1/a.csv")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "conv-1/a.csv"), ErrNotFound)
	assert.ErrorIs(t, s.Upload(ctx, "../escape", "text/csv", nil), ErrInvalidPath)
}

func TestLocalStorageHandler(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/files")
	require.NoError(t, err)
	require.NoError(t, s.Upload(context.Background(), "conv-1/171-abc.png", "image/png", []byte("png")))

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	tests := []struct {
		path   string
		status int
	}{
		{"/conv-1/171-abc.png", http.StatusOK},
		{"/conv-1/", http.StatusNotFound},
		{"/conv-1", http.StatusNotFound},
		{"/", http.StatusNotFound},
		{"/conv-1/missing.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, tt.status, resp.StatusCode, tt.path)
		if tt.status == http.StatusNotFound {
			assert.NotContains(t, string(body), "171-abc", tt.path)
		}
	}
}

func TestSupabaseStorage(t *testing.T) {
	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/data_files/c1/a.png":
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			assert.Equal(t, "3600", r.Header.Get("cache-control"))
			assert.Equal(t, "false", r.Header.Get("x-upsert"))
			uploaded, _ = io.ReadAll(r.Body)
			io.WriteString(w, `{"Key":"data_files/c1/a.png"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/storage/v1/object/data_files/c1/a.png":
			w.Write(uploaded)
		case r.Method == http.MethodDelete && r.URL.Path == "/storage/v1/object/data_files":
			var body map[string][]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"c1/a.png"}, body["prefixes"])
			io.WriteString(w, `[]`)
		default:
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s := NewSupabaseStorage(srv.URL+"/", "key", "data_files", 5*time.Second)

	require.NoError(t, s.Upload(ctx, "c1/a.png", "image/png", []byte{0x89, 'P', 'N', 'G'}))
	data, err := s.Download(ctx, "c1/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, err = s.Download(ctx, "c1/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "c1/a.png"))
	assert.Equal(t, srv.URL+"/storage/v1/object/public/data_files/c1/a.png", s.PublicURL("c1/a.png"))
}
