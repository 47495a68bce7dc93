// Package sla holds the service-level agreement policy: the fixed
// priority-to-deadline table and the functions deriving display status
// and the persisted violation flag. Everything here is pure; callers
// supply the clock.
package sla

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// WarningWindow is how close to the deadline a ticket gets flagged as
// at-risk on reads.
const WarningWindow = time.Hour

// Status is the derived SLA state shown to callers. It is recomputed on
// every read; only the violated flag is ever persisted.
type Status string

const (
	StatusOK        Status = "ok"
	StatusWarning   Status = "warning"
	StatusViolated  Status = "violated"
	StatusCompleted Status = "completed"
)

// DurationFor maps a priority to its resolution window. The table is
// fixed policy, not configuration: Critical 2h, High 4h, Medium 8h,
// Low 24h.
func DurationFor(p domain.TicketPriority) time.Duration {
	switch p {
	case domain.TicketPriorityCritical:
		return 2 * time.Hour
	case domain.TicketPriorityHigh:
		return 4 * time.Hour
	case domain.TicketPriorityMedium:
		return 8 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// DeadlineFor computes the deadline for a ticket created (or re-prioritized)
// with the given priority. The anchor is always the creation timestamp:
// changing priority later moves the deadline relative to creation, not to
// the moment of the change.
func DeadlineFor(createdAt time.Time, p domain.TicketPriority) time.Time {
	return createdAt.Add(DurationFor(p))
}

// Evaluate derives the display status for a ticket. Resolved and closed
// tickets are terminal and never re-evaluated.
func Evaluate(now, deadline time.Time, status domain.TicketStatus) Status {
	if status.Terminal() {
		return StatusCompleted
	}
	if now.After(deadline) {
		return StatusViolated
	}
	if deadline.Sub(now) < WarningWindow {
		return StatusWarning
	}
	return StatusOK
}

// StickyViolation computes the persisted violation flag. The flag is
// monotonic: once true it never reverts. It only trips while the ticket
// is still in a non-terminal status.
func StickyViolation(current bool, now, deadline time.Time, status domain.TicketStatus) bool {
	if current {
		return true
	}
	return !status.Terminal() && now.After(deadline)
}
