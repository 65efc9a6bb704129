package readme

import "errors"

var (
	// ErrNotFound: the handle is unknown upstream, or nothing is stored for it.
	ErrNotFound = errors.New("not found")
	// ErrUpstream: the GitHub API answered with an unexpected status.
	ErrUpstream = errors.New("upstream error")
	// ErrGeneration: the completion API failed or returned no completion.
	ErrGeneration = errors.New("generation failed")
	// ErrValidation: a required request field is missing.
	ErrValidation = errors.New("validation failed")
	// ErrStore: a persistence operation failed.
	ErrStore = errors.New("store error")
)
