package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

func TestIsPrecondition(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want bool
	}{
		{"no session", shared.ErrNoSession, true},
		{"wrapped missing argument", fmt.Errorf("%w: spreadsheet path", shared.ErrMissingArgument), true},
		{"doubly wrapped missing config", fmt.Errorf("load: %w", fmt.Errorf("%w: config.toml", shared.ErrMissingConfig)), true},
		{"nothing pending", shared.ErrNothingPending, true},
		{"operation failed", fmt.Errorf("%w: upload failed", shared.ErrFailed), false},
		{"unclassified", errors.New("boom"), false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPrecondition(tt.err); got != tt.want {
				t.Errorf("isPrecondition(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
