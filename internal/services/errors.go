package services

import "errors"

var (
	// ErrForbidden marks writes attempted without the controller role.
	ErrForbidden = errors.New("forbidden")

	// ErrPhaseConflict marks a phase write that lost the optimistic version
	// check to a concurrent controller write.
	ErrPhaseConflict = errors.New("phase state was modified concurrently")

	// ErrInvalidTransition marks a status move outside the allowed graph.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrGenerationFailed covers upstream generator failures: network errors,
	// non-2xx responses and payloads that fail schema validation.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrNoDiagnostic means the user has no diagnostic entries yet; callers
	// must present a "no diagnostic" state, never a synthetic zero score.
	ErrNoDiagnostic = errors.New("no diagnostic entries")

	// ErrInvalidScores marks diagnostic submissions outside [0,10].
	ErrInvalidScores = errors.New("diagnostic scores must be between 0 and 10")

	// ErrUnknownContentKind marks a content request for a kind we don't have.
	ErrUnknownContentKind = errors.New("unknown content kind")
)
