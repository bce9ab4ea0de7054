package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"validation", Validation("power must be greater than 0"), KindValidation},
		{"not found", NotFound("power plant not found"), KindNotFound},
		{"precondition", PreconditionFailed("no calibration data"), KindPreconditionFailed},
		{"unauthorized", Unauthorized("not the community admin"), KindUnauthorized},
		{"conflict", Conflict("power plant is already in community"), KindConflict},
		{"upstream", Upstream("fetching forecast", errors.New("timeout")), KindUpstream},
		{"wrapped", fmt.Errorf("predict: %w", NotFound("power plant not found")), KindNotFound},
		{"plain error", errors.New("boom"), 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("fetching forecast", cause)
	if !errors.Is(err, cause) {
		t.Error("expected upstream error to unwrap to its cause")
	}
	if err.Error() != "fetching forecast: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
