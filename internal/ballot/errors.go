package ballot

import "errors"

var (
	// ErrUnknownPart indicates a part name other than frontend or backend.
	ErrUnknownPart = errors.New("unknown part")

	// ErrUnknownCandidate indicates an id that is neither a candidate nor a
	// team of the requested part.
	ErrUnknownCandidate = errors.New("unknown candidate")
)
