package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrJobNotCancelable = errors.New("job is not in a cancelable state")
	ErrQueueFull        = errors.New("worker queue full")
	ErrAllModelsFailed  = errors.New("all models failed")
)
