package fetch

import "errors"

// Retrieval errors.
var (
	// ErrTooLarge is returned when a resource exceeds the size limit.
	ErrTooLarge = errors.New("content too large")

	// ErrNoMatch is returned when a glob location matches no file.
	ErrNoMatch = errors.New("location matches no file")
)
