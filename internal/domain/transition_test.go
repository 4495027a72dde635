package domain_test

import (
	"errors"
	"testing"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
)

func TestValidateOperatorTransition_AllowedPairs(t *testing.T) {
	allowed := []struct {
		current, target domain.JobStatus
	}{
		{domain.JobStatusScheduled, domain.JobStatusPaused},
		{domain.JobStatusPaused, domain.JobStatusScheduled},
		{domain.JobStatusScheduled, domain.JobStatusCancelled},
		{domain.JobStatusPaused, domain.JobStatusCancelled},
		{domain.JobStatusRunning, domain.JobStatusCancelled},
	}

	for _, tc := range allowed {
		if err := domain.ValidateOperatorTransition(tc.current, tc.target); err != nil {
			t.Errorf("%s -> %s: unexpected error: %v", tc.current, tc.target, err)
		}
	}
}

func TestValidateOperatorTransition_TargetNotSettableFromAPI(t *testing.T) {
	for _, target := range []domain.JobStatus{
		domain.JobStatusRunning,
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
	} {
		err := domain.ValidateOperatorTransition(domain.JobStatusScheduled, target)
		if err == nil {
			t.Errorf("target %s: want error, got nil", target)
			continue
		}
		var ite *domain.InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Errorf("target %s: want InvalidTransitionError, got %T", target, err)
			continue
		}
		want := "Cannot set status to " + string(target) + " from API"
		if ite.Detail != want {
			t.Errorf("detail = %q, want %q", ite.Detail, want)
		}
	}
}

func TestValidateOperatorTransition_DisallowedPairs(t *testing.T) {
	disallowed := []struct {
		current, target domain.JobStatus
	}{
		{domain.JobStatusRunning, domain.JobStatusPaused},
		{domain.JobStatusRunning, domain.JobStatusScheduled},
		{domain.JobStatusCompleted, domain.JobStatusCancelled},
		{domain.JobStatusFailed, domain.JobStatusScheduled},
		{domain.JobStatusCancelled, domain.JobStatusScheduled},
		{domain.JobStatusScheduled, domain.JobStatusScheduled},
	}

	for _, tc := range disallowed {
		err := domain.ValidateOperatorTransition(tc.current, tc.target)
		if err == nil {
			t.Errorf("%s -> %s: want error, got nil", tc.current, tc.target)
			continue
		}
		var ite *domain.InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Errorf("%s -> %s: want InvalidTransitionError, got %T", tc.current, tc.target, err)
			continue
		}
		want := "Cannot set status to " + string(tc.target) + " when job is " + string(tc.current)
		if ite.Detail != want {
			t.Errorf("detail = %q, want %q", ite.Detail, want)
		}
	}
}

func TestTerminal(t *testing.T) {
	terminal := map[domain.JobStatus]bool{
		domain.JobStatusScheduled: false,
		domain.JobStatusRunning:   false,
		domain.JobStatusPaused:    false,
		domain.JobStatusCompleted: true,
		domain.JobStatusFailed:    true,
		domain.JobStatusCancelled: true,
	}

	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
