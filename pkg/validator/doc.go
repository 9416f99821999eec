// Package validator provides small declarative validation rules.
//
// A Rule pairs a Check function with the ValidationError reported when the
// check fails. Apply evaluates rules in order and returns a ValidationErrors
// value (which implements error) holding every failure, so a handler can
// report all invalid fields of a request at once:
//
//	err := validator.Apply(
//		validator.RequiredString("name", in.Name),
//		validator.MaxLenString("name", in.Name, 255),
//		validator.MatchesRegex("key", in.Key, keyPattern, "lowercase identifier"),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs != nil {
//		// render field errors
//	}
//
// Rules hold no state and are safe to build from any goroutine.
package validator
