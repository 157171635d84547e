package models

import "errors"

// Domain sentinel errors. Callers branch on these with errors.Is; the
// wrapped message carries the specifics.
var (
	// ErrDuplicateComplaint is returned when a user files a second
	// complaint against the same content.
	ErrDuplicateComplaint = errors.New("complaint already exists")

	// ErrDuplicateAppeal is returned when a moderation log already has an
	// appeal recorded against it.
	ErrDuplicateAppeal = errors.New("appeal already filed")

	// ErrNotAuthorized is returned when a user acts on content they do
	// not own.
	ErrNotAuthorized = errors.New("not authorized")
)
