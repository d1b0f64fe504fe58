package model

import "errors"

var (
	// ErrInsufficientData means a series is too short for a computation.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDataUnavailable means no provider could deliver the series.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrCommentaryUnavailable means the optional commentary step failed.
	ErrCommentaryUnavailable = errors.New("commentary unavailable")
)
