package videos

import "errors"

var (
	// ErrProberUnavailable indicates the duration prober is not configured.
	ErrProberUnavailable = errors.New("video duration prober unavailable")
	// ErrInvalidPage indicates a non-numeric or non-positive page parameter.
	ErrInvalidPage = errors.New("page must be a positive integer")
	// ErrInvalidLimit indicates a non-numeric or non-positive limit parameter.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
	// ErrUnknownSortField indicates a sortBy value outside the supported set.
	ErrUnknownSortField = errors.New("unsupported sort field")
	// ErrInvalidSortType indicates a sortType other than asc or desc.
	ErrInvalidSortType = errors.New("sortType must be asc or desc")
)
