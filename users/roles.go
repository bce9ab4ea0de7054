package users

// Role is one entry in a user's role ledger. Roles are derived state,
// adjusted by idempotent grant/revoke calls as plants and memberships come
// and go.
type Role string

const (
	RoleBasicUser       Role = "basic-user"
	RolePowerPlantOwner Role = "power-plant-owner"
	RoleCommunityMember Role = "community-member"
	RoleCommunityAdmin  Role = "community-admin"
	RoleAdmin           Role = "admin"
)

// HasRole works on the slice shape the ledger is handed around in.
func HasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
