package ghe

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
)

// ErrorKind identifies which variant of Error is populated.
type ErrorKind int

// Error kinds. Exactly one applies to any failure.
const (
	KindNotFound ErrorKind = iota + 1
	KindValidationFailed
	KindRateLimited
	KindUnauthorized
	KindForbidden
	KindServerError
	KindTransportFailure
	KindArgumentInvalid
)

var kindNames = map[ErrorKind]string{
	KindNotFound:         "not found",
	KindValidationFailed: "validation failed",
	KindRateLimited:      "rate limited",
	KindUnauthorized:     "unauthorized",
	KindForbidden:        "forbidden",
	KindServerError:      "server error",
	KindTransportFailure: "transport failure",
	KindArgumentInvalid:  "argument invalid",
}

// String returns the human readable name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// FieldError is a single entry of the "errors" array GitHub returns with 422 responses.
type FieldError struct {
	Resource string `json:"resource,omitempty" yaml:"resource,omitempty"`
	Field    string `json:"field,omitempty"    yaml:"field,omitempty"`
	Code     string `json:"code,omitempty"     yaml:"code,omitempty"`
	Message  string `json:"message,omitempty"  yaml:"message,omitempty"`
}

// describe renders the entry as a single validation message.
func (f FieldError) describe() string {
	if f.Message != "" {
		return f.Message
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{f.Resource, f.Field, f.Code} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, " ")
}

// ErrorBody is the JSON error document returned by the API.
type ErrorBody struct {
	Message          string       `json:"message"                     yaml:"message"`
	Errors           []FieldError `json:"errors,omitempty"            yaml:"errors,omitempty"`
	DocumentationURL string       `json:"documentation_url,omitempty" yaml:"documentation_url,omitempty"`
}

// UnmarshalJSON accepts "errors" entries that are plain strings as well as objects.
func (b *ErrorBody) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message          string            `json:"message"`
		Errors           []json.RawMessage `json:"errors"`
		DocumentationURL string            `json:"documentation_url"`
	}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return fmt.Errorf("failed to unmarshal error body: %w", err)
	}

	b.Message = raw.Message
	b.DocumentationURL = raw.DocumentationURL
	b.Errors = make([]FieldError, 0, len(raw.Errors))

	for _, entry := range raw.Errors {
		var fieldErr FieldError

		if json.Unmarshal(entry, &fieldErr) == nil {
			b.Errors = append(b.Errors, fieldErr)

			continue
		}

		var text string
		if json.Unmarshal(entry, &text) == nil {
			b.Errors = append(b.Errors, FieldError{Message: text})
		}
	}

	return nil
}

// Error is the typed failure surfaced by every client call.
//
// Only the fields belonging to Kind are populated: Messages for
// KindValidationFailed, ResetAt for KindRateLimited, ParameterName for
// KindArgumentInvalid and Cause for KindTransportFailure. StatusCode is set
// whenever a response was received.
type Error struct {
	Kind          ErrorKind
	StatusCode    int
	Message       string
	Messages      []string
	ResetAt       time.Time
	ParameterName string
	Cause         error
	Body          *ErrorBody
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindValidationFailed:
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Messages, "; "))
	case KindRateLimited:
		if !e.ResetAt.IsZero() {
			return fmt.Sprintf("%s: resets at %s", e.Kind, e.ResetAt.UTC().Format(time.RFC3339))
		}
	case KindArgumentInvalid:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s: %s", e.Kind, e.ParameterName, e.Message)
		}

		return fmt.Sprintf("%s: %s", e.Kind, e.ParameterName)
	case KindTransportFailure:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
		}
	case KindNotFound, KindUnauthorized, KindForbidden, KindServerError:
	}

	if e.Message != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}

	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.StatusCode)
	}

	return e.Kind.String()
}

// Unwrap returns the transport cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrNotFound) matches any not-found failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
	ErrRateLimited      = &Error{Kind: KindRateLimited}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrServerError      = &Error{Kind: KindServerError}
	ErrTransportFailure = &Error{Kind: KindTransportFailure}
	ErrArgumentInvalid  = &Error{Kind: KindArgumentInvalid}
)

// Static errors that can be wrapped with context.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrAPIEndpointRequired  = errors.New("API endpoint is required")
	ErrNoHostInURL          = errors.New("no host specified in URL")
	ErrNoMoreItems          = errors.New("no more items")
	ErrUnsupportedMediaType = errors.New("unsupported response media type")
	ErrEmptyResponseBody    = errors.New("empty response body")
)

// NewTransportError wraps a failure where no response was received.
func NewTransportError(cause error) *Error {
	return &Error{Kind: KindTransportFailure, Cause: cause}
}

// NewArgumentError reports caller misuse detected before any I/O.
func NewArgumentError(parameterName, message string) *Error {
	return &Error{Kind: KindArgumentInvalid, ParameterName: parameterName, Message: message}
}

// Classify maps a non-2xx exchange to exactly one error kind. It never fails:
// an unparseable body degrades to its raw text, and anything unmatched is a
// ServerError carrying the status code.
func Classify(statusCode int, headers http.Header, body []byte) *Error {
	parsed, parseErr := parseErrorBody(body)

	apiErr := &Error{StatusCode: statusCode, Body: parsed}
	if parsed != nil {
		apiErr.Message = parsed.Message
	}

	switch {
	case statusCode == http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case statusCode == http.StatusUnprocessableEntity,
		statusCode == http.StatusBadRequest && parsed != nil && len(parsed.Errors) > 0:
		apiErr.Kind = KindValidationFailed
		apiErr.Messages = validationMessages(parsed, parseErr, body, statusCode)
	case (statusCode == http.StatusForbidden || statusCode == http.StatusTooManyRequests) && hasRateLimitHeaders(headers):
		apiErr.Kind = KindRateLimited
		apiErr.ResetAt = rateLimitReset(headers, time.Now())
	case statusCode == http.StatusUnauthorized:
		apiErr.Kind = KindUnauthorized
	case statusCode == http.StatusForbidden:
		apiErr.Kind = KindForbidden
	default:
		apiErr.Kind = KindServerError
	}

	if apiErr.Message == "" && parseErr != nil {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}

// parseErrorBody decodes body as an ErrorBody. A nil body yields (nil, nil).
func parseErrorBody(body []byte) (*ErrorBody, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var parsed ErrorBody

	err := json.Unmarshal(body, &parsed)
	if err != nil {
		return nil, err
	}

	return &parsed, nil
}

func validationMessages(parsed *ErrorBody, parseErr error, body []byte, statusCode int) []string {
	if parseErr != nil || parsed == nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = http.StatusText(statusCode)
		}

		return []string{text}
	}

	messages := make([]string, 0, len(parsed.Errors)+1)

	for _, fieldErr := range parsed.Errors {
		if msg := fieldErr.describe(); msg != "" {
			messages = append(messages, msg)
		}
	}

	if len(messages) == 0 {
		msg := parsed.Message
		if msg == "" {
			msg = http.StatusText(statusCode)
		}

		messages = append(messages, msg)
	}

	return messages
}

// hasRateLimitHeaders reports whether the response says the quota is spent.
func hasRateLimitHeaders(headers http.Header) bool {
	if headers == nil {
		return false
	}

	if headers.Get(constants.HeaderRetryAfter) != "" {
		return true
	}

	return headers.Get(constants.HeaderRateLimitRemaining) == "0"
}

func rateLimitReset(headers http.Header, now time.Time) time.Time {
	if reset := headers.Get(constants.HeaderRateLimitReset); reset != "" {
		seconds, err := strconv.ParseInt(reset, 10, 64)
		if err == nil {
			return time.Unix(seconds, 0)
		}
	}

	if retryAfter := headers.Get(constants.HeaderRetryAfter); retryAfter != "" {
		seconds, err := strconv.Atoi(retryAfter)
		if err == nil {
			return now.Add(time.Duration(seconds) * time.Second)
		}

		when, err := http.ParseTime(retryAfter)
		if err == nil {
			return when
		}
	}

	return time.Time{}
}

// kindOf extracts the kind of a classified error anywhere in the chain.
func kindOf(err error) ErrorKind {
	apiErr := &Error{}
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsValidationFailed checks if the server rejected the payload.
func IsValidationFailed(err error) bool {
	return kindOf(err) == KindValidationFailed
}

// IsRateLimited checks if the error is a rate limit error.
func IsRateLimited(err error) bool {
	return kindOf(err) == KindRateLimited
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return kindOf(err) == KindUnauthorized
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return kindOf(err) == KindForbidden
}

// IsServerError checks if the error is a server error.
func IsServerError(err error) bool {
	return kindOf(err) == KindServerError
}

// IsTransportFailure checks if no response was received.
func IsTransportFailure(err error) bool {
	return kindOf(err) == KindTransportFailure
}

// IsArgumentInvalid checks if the call was rejected before any I/O.
func IsArgumentInvalid(err error) bool {
	return kindOf(err) == KindArgumentInvalid
}
