package domain

import "fmt"

// operatorTransitions maps a status requested through the API to the
// current statuses it may be applied from. Worker-driven transitions
// (claim, completion, reschedule, crash recovery) do not go through
// this table; they are fixed by the claim protocol.
var operatorTransitions = map[JobStatus][]JobStatus{
	JobStatusPaused:    {JobStatusScheduled},
	JobStatusScheduled: {JobStatusPaused},
	JobStatusCancelled: {JobStatusScheduled, JobStatusPaused, JobStatusRunning},
}

// ValidateOperatorTransition checks a status change requested by an
// external caller. Cancelling a RUNNING job is allowed but does not
// interrupt the in-flight attempt; the worker observes the terminal
// status before its own writeback and yields.
func ValidateOperatorTransition(current, target JobStatus) error {
	froms, ok := operatorTransitions[target]
	if !ok {
		return &InvalidTransitionError{
			Detail: fmt.Sprintf("Cannot set status to %s from API", target),
		}
	}
	for _, from := range froms {
		if from == current {
			return nil
		}
	}
	return &InvalidTransitionError{
		Detail: fmt.Sprintf("Cannot set status to %s when job is %s", target, current),
	}
}
