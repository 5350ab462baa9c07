// Package httpjson is the JSON request/response codec shared by every
// handler.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBody = 1 << 20

type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Read decodes one JSON object, rejecting unknown fields and bodies over
// 1 MiB. An empty body leaves dst untouched.
func Read(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, ErrorBody{Error: msg})
}

func ErrorWithDetails(w http.ResponseWriter, status int, msg string, details any) {
	Write(w, status, ErrorBody{Error: msg, Details: details})
}
