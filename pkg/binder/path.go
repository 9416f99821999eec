package binder

import (
	"fmt"
	"net/http"
)

// Path creates a path parameter binder using `path` tags. extractor returns
// the value of a named parameter; chi.URLParam fits directly.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}
		return bindToStruct(v, "path", lookupFunc(func(name string) []string {
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		}), ErrFailedToParsePath)
	}
}
