// Package validator provides declarative, rule-based input validation.
//
// A Rule pairs a check with the ValidationError reported when the check
// fails. Apply runs every rule and returns all failures at once as
// ValidationErrors, so forms can show field-level messages:
//
//	err := validator.Apply(
//	    validator.RequiredString("email", email),
//	    validator.ValidEmail("email", email),
//	    validator.MinLenString("password", password, 6),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs.Has("email") {
//	    // ...
//	}
//
// Rules never touch the network; they are meant to run before any call to
// an external service.
package validator
