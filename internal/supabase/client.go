// Package supabase holds the HTTP plumbing shared by the PostgREST and
// Storage backends.
package supabase

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx answer from Supabase.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase API error %d: %s", e.Status, e.Body)
}

// NewClient returns a resty client rooted at baseURL+path that authenticates
// with the service key.
func NewClient(baseURL, path, serviceKey string, timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/") + path)
	client.SetTimeout(timeout)
	client.SetHeader("apikey", serviceKey)
	client.SetAuthToken(serviceKey)
	return client
}

// CheckResponse turns transport failures and error statuses into errors.
func CheckResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to %s: %w", op, &APIError{Status: resp.StatusCode(), Body: resp.String()})
	}
	return nil
}

// IsNotFound reports whether err carries a 404 from Supabase.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
