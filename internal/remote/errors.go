package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"songrank/internal/services"
)

// ValidationError carries per-field messages from a rejected create or update.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+strings.Join(e.Fields[key], " "))
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == services.ErrValidation
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case services.ErrServer:
		return e.StatusCode >= 500
	case services.ErrValidation:
		return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusNotFound
	case services.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case services.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// parseValidation decodes a DRF style error body: an object whose values are
// a message or a list of messages. Bodies that do not fit land under
// "non_field_errors".
func parseValidation(body []byte) *ValidationError {
	fields := map[string][]string{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err == nil {
		for key, value := range raw {
			var list []string
			if err := json.Unmarshal(value, &list); err == nil {
				fields[key] = list
				continue
			}
			var single string
			if err := json.Unmarshal(value, &single); err == nil {
				fields[key] = []string{single}
				continue
			}
			fields[key] = []string{strings.TrimSpace(string(value))}
		}
	}
	if len(fields) == 0 {
		if text := strings.TrimSpace(string(body)); text != "" {
			fields["non_field_errors"] = []string{text}
		}
	}
	return &ValidationError{Fields: fields}
}

// AsValidation unwraps a *ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
