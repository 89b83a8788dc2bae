package claims

import "github.com/complidesk/gpsr-registry/pkg/regerrors"

// reviewTransitions defines the legal review moves. ACCEPTED and REJECTED
// are terminal for a claim instance; DISPUTED claims go back through review.
// SUPERSEDED is never a review target: it is only assigned by Submit when a
// successor claim arrives for the same (subject, subject_id, attribute).
var reviewTransitions = map[Status][]Status{
	StatusProposed: {StatusAccepted, StatusRejected, StatusDisputed},
	StatusDisputed: {StatusAccepted, StatusRejected},
}

// nonTerminal are the statuses a successor claim may supersede.
var nonTerminal = []Status{StatusProposed, StatusDisputed}

// validateReviewTransition returns a Validation error when from->to is not a
// legal review move.
func validateReviewTransition(from, to Status) error {
	for _, allowed := range reviewTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return regerrors.Validation("claim status %s cannot transition to %s", from, to)
}
