package binder

import "net/http"

// Query creates a query-string binder using `query` tags. Slice fields
// accept repeated parameters and comma-separated values.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", valuesSource(r.URL.Query()), ErrFailedToParseQuery)
	}
}
