package rbac

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role, perm string
		want       bool
	}{
		{RoleAdmin, PermSettleEscrow, true},
		{RoleAdmin, PermRunIndexer, true},
		{RoleAdmin, PermFundEscrow, false},
		{RoleClient, PermFundEscrow, true},
		{RoleClient, PermSettleEscrow, false},
		{RoleClient, PermViewAnyProject, false},
		{RoleBeneficiary, PermViewAnyProject, true},
		{RoleBeneficiary, PermAnchorDraft, false},
		{"unknown", PermFundEscrow, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestIsIrreversible(t *testing.T) {
	for _, p := range []string{PermSettleEscrow, PermPauseEscrow, PermDeployEscrow} {
		if !IsIrreversible(p) {
			t.Errorf("%s should be irreversible", p)
		}
	}
	for _, p := range []string{PermFundEscrow, PermAnchorDraft, PermCreateProject} {
		if IsIrreversible(p) {
			t.Errorf("%s should not be irreversible", p)
		}
	}
}
