package show

import "errors"

var (
	// ErrInvalidDocument wraps every validation failure.
	ErrInvalidDocument = errors.New("show: invalid document")

	// ErrUnknownDashboard is returned when a dashboard id is not defined.
	ErrUnknownDashboard = errors.New("show: unknown dashboard")

	// ErrDocumentNotFound is returned by stores that hold no document yet.
	ErrDocumentNotFound = errors.New("show: document not found")
)
