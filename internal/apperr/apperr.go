// Package apperr defines the failure kinds a sync run can end with.
//
// Every error surfaced by coursecal wraps exactly one of the top-level
// sentinels below, so callers classify failures with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTermFormatInvalid    = errors.New("invalid term format")
	ErrTermNotFound         = errors.New("term not found")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrSectionNotFound      = errors.New("section not found")
	ErrParseFailed          = errors.New("parse failed")
)

// Parse sub-kinds. Each one also matches ErrParseFailed.
var (
	ErrInvalidTimeValue    = fmt.Errorf("%w: invalid time value", ErrParseFailed)
	ErrUnparseableLocation = fmt.Errorf("%w: unparseable location", ErrParseFailed)
	ErrUnknownWeekdayCode  = fmt.Errorf("%w: unknown weekday code", ErrParseFailed)
	ErrInvalidWeekday      = fmt.Errorf("%w: invalid weekday", ErrParseFailed)
)
