package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Settlement outcomes
		{ProjectStatusDraftSubmitted, ProjectStatusReleased, true},
		{ProjectStatusDraftSubmitted, ProjectStatusRefunded, true},
		{ProjectStatusDraftSubmitted, ProjectStatusSplit, true},
		{ProjectStatusInProgress, ProjectStatusDraftSubmitted, true},

		// Terminal statuses
		{ProjectStatusReleased, ProjectStatusRefunded, false},
		{ProjectStatusReleased, ProjectStatusSplit, false},
		{ProjectStatusRefunded, ProjectStatusReleased, false},
		{ProjectStatusSplit, ProjectStatusReleased, false},
		{ProjectStatusSplit, ProjectStatusDraftSubmitted, false},

		// Skipping the draft stage
		{ProjectStatusInProgress, ProjectStatusReleased, false},
		{ProjectStatusInProgress, ProjectStatusSplit, false},

		{"nonexistent", ProjectStatusReleased, false},
		{ProjectStatusDraftSubmitted, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		ProjectStatusInProgress, ProjectStatusDraftSubmitted,
		ProjectStatusReleased, ProjectStatusRefunded, ProjectStatusSplit,
	}

	for _, status := range allStatuses {
		if _, ok := ValidProjectTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidProjectTransitions map", status)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{ProjectStatusReleased, ProjectStatusRefunded, ProjectStatusSplit}
	for _, status := range terminal {
		if !IsTerminalStatus(status) {
			t.Errorf("status %q should be terminal", status)
		}
		transitions := ValidProjectTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
	if IsTerminalStatus(ProjectStatusDraftSubmitted) {
		t.Error("DRAFT_SUBMITTED must not be terminal")
	}
}

func TestProjectReviewExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		due  *time.Time
		want bool
	}{
		{"no deadline", nil, false},
		{"past deadline", &past, true},
		{"exact deadline", &now, true},
		{"future deadline", &future, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project{ReviewDueAt: tt.due}
			if got := p.ReviewExpired(now); got != tt.want {
				t.Errorf("ReviewExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectEscrowTotal(t *testing.T) {
	p := Project{
		DepositAmount: decimal.RequireFromString("1200.50"),
		BalanceAmount: decimal.RequireFromString("799.50"),
	}
	if got := p.EscrowTotal(); !got.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("EscrowTotal = %s, want 2000", got)
	}
}

func TestMfaCodeMatchesPurpose(t *testing.T) {
	scoped := "escrow_release"
	now := time.Now()

	unscoped := MfaCode{ExpiresAt: now.Add(time.Minute)}
	if !unscoped.MatchesPurpose("") || !unscoped.MatchesPurpose("escrow_refund") {
		t.Error("unscoped code should match any purpose")
	}

	code := MfaCode{Purpose: &scoped, ExpiresAt: now.Add(time.Minute)}
	if !code.MatchesPurpose(scoped) {
		t.Error("scoped code should match its own purpose")
	}
	if code.MatchesPurpose("") || code.MatchesPurpose("escrow_refund") {
		t.Error("scoped code must not match another purpose")
	}

	if !code.Usable(now) {
		t.Error("fresh code should be usable")
	}
	used := now
	code.UsedAt = &used
	if code.Usable(now) {
		t.Error("consumed code must not be usable")
	}
	expired := MfaCode{ExpiresAt: now.Add(-time.Second)}
	if expired.Usable(now) {
		t.Error("expired code must not be usable")
	}
}
