package console

import "errors"

var (
	// ErrUnknownDashboard is returned for role or access operations naming
	// a dashboard the show does not define.
	ErrUnknownDashboard = errors.New("console: unknown dashboard")
)
