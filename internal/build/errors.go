package build

import "errors"

// Sentinel errors classifying per-file failures. They are wrapped with
// context at the call site.
var (
	ErrInvalidUTF8 = errors.New("katsite: invalid UTF-8")
	ErrRender      = errors.New("katsite: render error")
)
