package image

import "fmt"

// ParseError reports a malformed line in an image file.
type ParseError struct {
	// Line is the 1-based line number, 0 when not line oriented
	Line int

	// Reason describes what is wrong with the line
	Reason string

	// Err is the underlying error, if any
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
