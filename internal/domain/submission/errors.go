package submission

import "errors"

var (
	// ErrEmptyContent is returned when analysis is requested for blank content.
	ErrEmptyContent = errors.New("submission content is empty")
	// ErrInvalidTransition is returned when a transition is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("submission not found")
)
