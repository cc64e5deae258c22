// services/errors.go - Error taxonomy shared by all services
package services

import "errors"

// Sentinel errors. Handlers map these onto HTTP statuses; services wrap
// them with context via fmt.Errorf("%w: ...").
var (
	// ErrInvalidArgument covers missing or semantically invalid input
	// (non-positive XP amount, submission without a link). Maps to 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrForbidden covers unmet gates: missing skills, incomplete
	// prerequisites, locked projects. Maps to 403.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound covers references to users or projects that do not
	// exist. Maps to 404.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded is raised when the external generator reports
	// rate-limit or quota exhaustion. Maps to 429 and must never be
	// downgraded to a generic failure.
	ErrQuotaExceeded = errors.New("generation quota exceeded")

	// ErrGenerationFailed covers any other external generator failure.
	// Maps to 500.
	ErrGenerationFailed = errors.New("generation failed")
)
