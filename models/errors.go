package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNoValidSegments     = errors.New("no valid segments")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrRenderFailed        = errors.New("render failed")
	ErrJobNotFound         = errors.New("job not found")
	ErrInvalidTransition   = errors.New("invalid job transition")
)

// SegmentError attaches the failing segment and pipeline stage to an error
type SegmentError struct {
	Index int
	Stage string
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("%s failed for segment %d: %v", e.Stage, e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}
