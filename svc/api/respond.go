package api

import (
	"encoding/json"
	"net/http"
)

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// bind applies binders in order and stops at the first error.
func bind(r *http.Request, v any, binders ...func(*http.Request, any) error) error {
	for _, b := range binders {
		if err := b(r, v); err != nil {
			return err
		}
	}
	return nil
}
