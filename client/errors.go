package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FallbackErrorMessage is what callers see when an error payload carries no
// recognizable message.
const FallbackErrorMessage = "something went wrong, please try again"

// APIError is a non-2xx response with the friendliest message the payload had.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// ExtractErrorMessage digs a human-readable message out of an error payload.
// Precedence: "detail", then "message", then "error"; field-validation maps
// are flattened; anything unrecognizable falls back to a generic message.
func ExtractErrorMessage(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return FallbackErrorMessage
	}

	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}

	// A field-validation map: join "field: text" lines in field order.
	fields := make([]string, 0, len(payload))
	for k := range payload {
		if _, ok := payload[k].(string); ok {
			fields = append(fields, k)
		}
	}
	if len(fields) == 0 {
		return FallbackErrorMessage
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, k := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", k, payload[k]))
	}
	return strings.Join(parts, "; ")
}
