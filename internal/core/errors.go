package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"

	"gwi.com/chart-bot/internal/parser"
)

var (
	ErrMessageRequired      = errors.New("message is required")
	ErrPromptRequired       = errors.New("prompt is required")
	ErrInvalidChartType     = errors.New("invalid chart type")
	ErrInvalidAnalysisInput = errors.New("missing required fields: data and prompt")
	ErrEmptyResponse        = errors.New("empty response received from Gemini")
	ErrUnsupportedFile      = errors.New("invalid file type. Please upload a CSV, JSON, or PNG file")
	ErrConversationRequired = errors.New("conversation id is required")
)

type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable"
	KindQuota       ErrorKind = "quota"
	KindAuth        ErrorKind = "auth"
	KindSafety      ErrorKind = "safety"
	KindInvalid     ErrorKind = "invalid"
)

const (
	msgUnavailable = "The AI service is temporarily unavailable. Please try again in a few minutes."
	msgQuota       = "Service quota exceeded. Please try again later."
	msgAuth        = "Authentication error. Please check your API key configuration."
	msgSafety      = "The request was blocked by safety filters. Please try rephrasing your request."
)

// UserError is a generation failure reduced to a message safe to show users.
type UserError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }

// Classify maps upstream LLM and parser failures onto UserErrors. Errors it
// does not recognize are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &UserError{Kind: KindSafety, Message: msgSafety, Err: err}
	}
	if errors.Is(err, parser.ErrInvalidResponse) {
		return &UserError{Kind: KindInvalid, Message: fmt.Sprintf("Failed to parse response: %v", err), Err: err}
	}

	switch statusCode(err) {
	case http.StatusNotFound, http.StatusServiceUnavailable:
		return &UserError{Kind: KindUnavailable, Message: msgUnavailable, Err: err}
	case http.StatusTooManyRequests:
		return &UserError{Kind: KindQuota, Message: msgQuota, Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &UserError{Kind: KindAuth, Message: msgAuth, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "model not found", "not supported", "unavailable"):
		return &UserError{Kind: KindUnavailable, Message: msgUnavailable, Err: err}
	case containsAny(msg, "quota", "rate limit"):
		return &UserError{Kind: KindQuota, Message: msgQuota, Err: err}
	case containsAny(msg, "permission", "unauthorized"):
		return &UserError{Kind: KindAuth, Message: msgAuth, Err: err}
	case containsAny(msg, "safety", "blocked"):
		return &UserError{Kind: KindSafety, Message: msgSafety, Err: err}
	}
	return err
}

// statusCode extracts an HTTP-equivalent status from Google API errors, or 0.
func statusCode(err error) int {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if code := apiErr.HTTPCode(); code > 0 {
			return code
		}
		if st := apiErr.GRPCStatus(); st != nil {
			switch st.Code() {
			case codes.NotFound:
				return http.StatusNotFound
			case codes.Unavailable:
				return http.StatusServiceUnavailable
			case codes.ResourceExhausted:
				return http.StatusTooManyRequests
			case codes.Unauthenticated:
				return http.StatusUnauthorized
			case codes.PermissionDenied:
				return http.StatusForbidden
			}
		}
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
