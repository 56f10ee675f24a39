package rbac

// Role constants
const (
	RoleAdmin       = "admin"
	RoleClient      = "client"
	RoleBeneficiary = "beneficiary"
)

// Permission constants
const (
	PermCreateProject  = "create_project"
	PermDeployEscrow   = "deploy_escrow"
	PermSettleEscrow   = "settle_escrow" // release / refund / split
	PermPauseEscrow    = "pause_escrow"
	PermFundEscrow     = "fund_escrow"
	PermAnchorDraft    = "anchor_draft"
	PermViewAnyProject = "view_any_project"
	PermRunIndexer     = "run_indexer"
	PermViewAudit      = "view_audit"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermCreateProject, PermDeployEscrow, PermSettleEscrow, PermPauseEscrow,
		PermAnchorDraft, PermViewAnyProject, PermRunIndexer, PermViewAudit,
	},
	RoleClient: {
		PermFundEscrow, PermAnchorDraft,
	},
	RoleBeneficiary: {
		PermViewAnyProject,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsIrreversible reports whether the permission gates an action that moves or
// freezes escrowed funds. Such actions additionally require a verification code.
func IsIrreversible(permission string) bool {
	return permission == PermSettleEscrow || permission == PermPauseEscrow || permission == PermDeployEscrow
}
