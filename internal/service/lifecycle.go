package service

import (
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

// TicketUpdateInput describes a partial ticket update. Nil pointers mean
// "leave unchanged". For the assignee an empty string clears the
// assignment.
type TicketUpdateInput struct {
	Title        *string
	Description  *string
	Department   *string
	Observations *string
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	AssigneeID   *string
}

// ticketChange pairs an applied field change with the system message
// narrating it. Free-text edits produce no narration.
type ticketChange struct {
	event   string
	message string
}

// applyTicketUpdate mutates the ticket per the lifecycle rules and
// returns the narrated changes. It is deliberately pure: the caller owns
// locking, persistence and event publication.
//
// Rules applied here:
//   - status: stamp resolved_at/closed_at exactly once, on the first
//     transition into the status; transitions themselves are
//     unconstrained.
//   - priority: recompute the SLA deadline from the original creation
//     timestamp, never from now.
//   - assignee: narrate old and new, "none" standing in for unassigned.
//   - title/description/department/observations: silent.
//
// The sticky violation flag is evaluated against the state before the
// update so that resolving an already-overdue ticket still records the
// violation.
func applyTicketUpdate(t *domain.Ticket, in TicketUpdateInput, actor string, now time.Time, usernameOf func(string) string) []ticketChange {
	var changes []ticketChange

	t.SLAViolated = sla.StickyViolation(t.SLAViolated, now, t.SLADeadline, t.Status)

	if in.Status != nil && *in.Status != t.Status {
		oldStatus := t.Status
		t.Status = *in.Status
		switch t.Status {
		case domain.TicketStatusResolved:
			if t.ResolvedAt == nil {
				stamp := now
				t.ResolvedAt = &stamp
			}
		case domain.TicketStatusClosed:
			if t.ClosedAt == nil {
				stamp := now
				t.ClosedAt = &stamp
			}
		}
		changes = append(changes, ticketChange{
			event:   changeStatus,
			message: fmt.Sprintf("Status changed from %s to %s by %s", oldStatus, t.Status, actor),
		})
	}

	if in.AssigneeID != nil {
		oldName := "none"
		if t.AssigneeID != nil {
			oldName = usernameOf(*t.AssigneeID)
		}
		if *in.AssigneeID == "" {
			if t.AssigneeID != nil {
				t.AssigneeID = nil
				changes = append(changes, ticketChange{
					event:   changeAssignee,
					message: fmt.Sprintf("Assigned technician removed (%s) by %s", oldName, actor),
				})
			}
		} else if t.AssigneeID == nil || *t.AssigneeID != *in.AssigneeID {
			newID := *in.AssigneeID
			t.AssigneeID = &newID
			changes = append(changes, ticketChange{
				event:   changeAssignee,
				message: fmt.Sprintf("Assigned technician changed from %s to %s by %s", oldName, usernameOf(newID), actor),
			})
		}
	}

	if in.Priority != nil && *in.Priority != t.Priority {
		oldPriority := t.Priority
		t.Priority = *in.Priority
		t.SLADeadline = sla.DeadlineFor(t.CreatedAt, t.Priority)
		changes = append(changes, ticketChange{
			event:   changePriority,
			message: fmt.Sprintf("Priority changed from %s to %s by %s", oldPriority, t.Priority, actor),
		})
	}

	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Department != nil {
		t.Department = *in.Department
	}
	if in.Observations != nil {
		t.Observations = *in.Observations
	}

	return changes
}

const (
	changeStatus   = "status"
	changeAssignee = "assignee"
	changePriority = "priority"
)
