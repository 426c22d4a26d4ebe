package codec

import "fmt"

// Options controls how missing cells are written and recognized on the
// wire. Both sentinels default to the empty string.
type Options struct {
	// NumericNA replaces missing cells in non-timestamp columns.
	NumericNA string
	// TimestampNA replaces missing cells in timestamp columns.
	TimestampNA string
}

// DefaultOptions returns the sentinel defaults.
func DefaultOptions() Options {
	return Options{NumericNA: "", TimestampNA: ""}
}

// DecodeOptions controls response decoding.
type DecodeOptions struct {
	Options
	// OutputNames lists the outputs the caller expects.
	OutputNames []string
	// KeepOnlyNamed drops outputs not in OutputNames. Off by default:
	// legacy filtering behavior kept for old callers.
	KeepOnlyNamed bool
}

// FormatError reports a malformed or missing field in a wire body.
type FormatError struct {
	Path string
	Msg  string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payload format error at %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("payload format error at %s: %s", e.Path, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(path, msg string, err error) *FormatError {
	return &FormatError{Path: path, Msg: msg, Err: err}
}
