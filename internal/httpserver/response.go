package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const ContentTypeJSON = "application/json"

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// WriteError writes the load balancer's own error envelope,
// {"error": "<message>"}.
func WriteError(w http.ResponseWriter, status int, message string) error {
	quoted, err := json.Marshal(message)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_, err = fmt.Fprintf(w, `{"error": %s}`, quoted)
	return err
}
