package hunter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/exec-outreach/internal/redact"
)

// errorEnvelope is the error shape used by the Hunter v2 API. Responses may
// include additional fields; we intentionally ignore them.
type errorEnvelope struct {
	Errors []struct {
		ID      string `json:"id"`
		Code    int    `json:"code"`
		Details string `json:"details"`
	} `json:"errors"`
}

// APIError is a sanitized summary of a non-2xx vendor API response.
//
// Important: never include raw request URLs or response bodies here unredacted;
// both can carry the API key.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	ErrorID    string
	Details    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "hunter api error"
	}
	parts := []string{
		fmt.Sprintf("hunter api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.ErrorID) != "" {
		parts = append(parts, "id="+strings.TrimSpace(e.ErrorID))
	}
	if strings.TrimSpace(e.Details) != "" {
		parts = append(parts, "details="+strings.TrimSpace(e.Details))
	}
	return strings.Join(parts, " ")
}

// Reason maps the failure onto the stable api_error reason recorded in the
// no-result sheet.
func (e *APIError) Reason() string {
	if e == nil {
		return "api_error"
	}
	if e.StatusCode == 0 {
		// Request never produced an HTTP status: transport failure,
		// cancellation, or a bad request URL.
		if strings.TrimSpace(e.Details) != "" {
			return strings.TrimSpace(e.Details)
		}
		return ReasonNetworkError
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return ReasonRateLimited
	}
	if strings.TrimSpace(e.Details) != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Details))
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

func newAPIError(op string, resp *http.Response, body []byte) *APIError {
	e := &APIError{Op: op}
	if resp != nil {
		e.StatusCode = resp.StatusCode
		e.Status = resp.Status
	}

	// Best effort: parse the vendor error envelope.
	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && len(env.Errors) > 0 {
		e.ErrorID = strings.TrimSpace(env.Errors[0].ID)
		e.Details = redactAndTruncate([]byte(env.Errors[0].Details))
		return e
	}

	e.Details = redactAndTruncate(body)
	return e
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	// Keep this small: response bodies can contain sensitive data.
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
