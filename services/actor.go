package services

import "loro-platform/models"

// Actor is the authenticated caller a service acts on behalf of.
type Actor struct {
	UserID         string
	Role           models.Role
	OrganisationID string
	BranchID       *string
}

// Is reports whether the actor holds one of roles.
func (a Actor) Is(roles ...models.Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Managers are the roles allowed to administer organisation records.
var Managers = []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleManager}

// PeopleAdmins may see other users' HR documents.
var PeopleAdmins = []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleHR}
