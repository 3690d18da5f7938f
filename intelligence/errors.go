package intelligence

import "errors"

var (
	// ErrInvalidDate is returned for a date that is not a usable calendar date.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidSeries is returned when the input cannot be read as a sales series.
	ErrInvalidSeries = errors.New("invalid sales series")
)
