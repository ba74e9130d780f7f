package manifold

import "errors"

// Sentinel errors for collaborator failures. Orchestration layers pass
// these through unchanged; callers match with errors.Is.
var (
	ErrNotFound     = errors.New("market not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("rejected by market")
	ErrNetwork      = errors.New("network error")
)
