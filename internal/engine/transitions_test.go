package engine

import (
	"errors"
	"testing"

	"maintline/internal/domain"
)

func TestEnsureStatusTransition(t *testing.T) {
	p, ip, c := domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted
	cases := []struct {
		from, to domain.Status
		reopen   bool
		ok       bool
	}{
		{p, ip, false, true},
		{ip, c, false, true},
		{p, c, false, true},
		{p, p, false, true},
		{c, c, false, true},
		{c, p, false, false},
		{c, ip, false, false},
		{ip, p, false, false},
		{c, p, true, true},
		{c, ip, true, true},
		{ip, p, true, true},
		{p, "Archived", true, false},
		{"", p, true, false},
	}
	for _, tc := range cases {
		err := ensureStatusTransition(tc.from, tc.to, tc.reopen)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s (reopen=%v): unexpected error %v", tc.from, tc.to, tc.reopen, err)
		}
		if !tc.ok && !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s -> %s (reopen=%v): expected invalid input, got %v", tc.from, tc.to, tc.reopen, err)
		}
	}
}
