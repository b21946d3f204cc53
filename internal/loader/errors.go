package loader

import "errors"

// Load errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported model format: expected .glb or .gltf")
	ErrDecode            = errors.New("malformed model data")
	ErrFetch             = errors.New("fetching model failed")
	ErrTooLarge          = errors.New("model exceeds size limit")
)

// Error reports a failed load together with the source and step.
type Error struct {
	Op     string // check, fetch, read, decode or build
	Source Source
	Err    error
}

func (e *Error) Error() string {
	return e.Op + " " + e.Source.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
