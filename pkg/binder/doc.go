// Package binder decodes HTTP request data into structs.
//
// JSON binds a size-limited JSON body and rejects unknown fields. Query and
// Path bind query-string and router path parameters through struct tags:
//
//	type listRequest struct {
//		FeatureID uuid.UUID `path:"featureID"`
//		Page      int       `query:"page"`
//		Search    string    `query:"search"`
//		Keys      []string  `query:"keys"`
//	}
//
//	var req listRequest
//	if err := binder.Path(chi.URLParam)(r, &req); err != nil { ... }
//	if err := binder.Query()(r, &req); err != nil { ... }
//
// Supported field types are strings (including named string types), signed
// and unsigned integers, floats, booleans, types implementing
// encoding.TextUnmarshaler (such as uuid.UUID), slices and pointers of these.
// Fields without a tag bind to the lowercased field name; a "-" tag skips
// the field.
package binder
