// Package access is the single place deciding who may see or change a
// ticket. Every read and write path, HTTP and websocket alike, goes
// through these predicates instead of per-route role checks.
package access

import "github.com/spec-kit/helpdesk-service/internal/domain"

// CanView reports whether the user may read the ticket and its thread.
// Administrators, directors and technicians see every ticket; a
// collaborator only sees tickets they requested.
func CanView(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	switch user.Role {
	case domain.RoleAdministrator, domain.RoleDirector, domain.RoleTechnician:
		return true
	case domain.RoleCollaborator:
		return ticket.RequesterID == user.ID
	}
	return false
}

// CanModify reports whether the user may mutate the ticket. Directors
// are a view-only oversight role. A technician may touch tickets
// assigned to them and may claim unassigned ones. A collaborator may
// edit their own ticket only while it is still OPEN; once triage moves
// the status, edit rights are gone.
func CanModify(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	switch user.Role {
	case domain.RoleAdministrator:
		return true
	case domain.RoleTechnician:
		return ticket.AssigneeID == nil || *ticket.AssigneeID == user.ID
	case domain.RoleCollaborator:
		return ticket.RequesterID == user.ID && ticket.Status == domain.TicketStatusOpen
	}
	return false
}

// ScopedToRequester reports whether ticket listings for this user must
// be pre-filtered to their own tickets. The list filter applies the same
// predicate CanView would, just pushed into the query.
func ScopedToRequester(user *domain.User) bool {
	return user != nil && user.Role == domain.RoleCollaborator
}
