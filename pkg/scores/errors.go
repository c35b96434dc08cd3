package scores

import "fmt"

// MalformedResultError reports a classification result whose top-level shape
// is wrong: not an object, or audio_score / frames_score missing or mistyped.
type MalformedResultError struct {
	Field  string
	Reason string
}

func (e *MalformedResultError) Error() string {
	if e.Field == "" {
		return "malformed classification result: " + e.Reason
	}
	return fmt.Sprintf("malformed classification result: %s %s", e.Field, e.Reason)
}

// SchemaError reports a category entry that does not carry a boolean "valid"
// and a numeric "confidence", or whose category name is empty or repeated.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("classification schema error at %s: %s", e.Path, e.Reason)
}
