package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService is the lifecycle engine: it owns ticket state, applies
// transitions with their side effects (narration, SLA recomputation,
// one-time stamps) and publishes the resulting domain events.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title        string
	Description  string
	Department   string
	Priority     domain.TicketPriority
	Observations string
}

// TicketListFilter describes listing filters; role scoping is applied on
// top of these.
type TicketListFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	Department *string
	AssigneeID *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// Create opens a new ticket for the requester. The SLA deadline is fixed
// to the creation instant plus the priority window, and the opening
// system message is written in the same transaction as the ticket row.
func (s *TicketService) Create(ctx context.Context, requester *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Department:   strings.TrimSpace(input.Department),
		Status:       domain.TicketStatusOpen,
		Priority:     priority,
		Observations: input.Observations,
		RequesterID:  requester.ID,
		CreatedAt:    now,
		SLADeadline:  sla.DeadlineFor(now, priority),
	}

	opening := &domain.ChatMessage{
		AuthorID: requester.ID,
		Content:  "Ticket created by " + requester.Username,
		Kind:     domain.MessageKindSystem,
	}

	if err := s.tickets.Create(ctx, ticket, opening); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  requester.ID,
		Payload: events.TicketCreatedPayload{
			Title:      ticket.Title,
			Department: ticket.Department,
			Priority:   ticket.Priority,
			Requester:  requester.Username,
		},
	})
	return ticket, nil
}

// Get fetches a single ticket, enforcing visibility and lazily
// persisting the sticky SLA flag when the deadline has passed.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if !access.CanView(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket access not permitted")
	}
	if err := s.refreshSticky(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// List returns tickets visible to the actor. Collaborators are scoped to
// their own tickets; everyone else gets the filtered full set.
func (s *TicketService) List(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Status:     filter.Status,
		Priority:   filter.Priority,
		Department: filter.Department,
		AssigneeID: filter.AssigneeID,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if access.ScopedToRequester(actor) {
		requesterID := actor.ID
		repoFilter.RequesterID = &requesterID
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		if err := s.refreshSticky(ctx, &tickets[i]); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

// Update applies a partial update under the per-ticket row lock. The
// permission check runs against the locked row, so a collaborator racing
// a technician's triage cannot slip an edit past the OPEN-only rule.
func (s *TicketService) Update(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if input.Status != nil && !domain.ValidStatus(*input.Status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !domain.ValidPriority(*input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
	}
	if input.AssigneeID != nil && *input.AssigneeID != "" {
		assignee, err := s.users.GetByID(ctx, *input.AssigneeID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewValidationError("assignee does not exist", nil)
			}
			return nil, err
		}
		if !assignee.IsActive {
			return nil, apperrors.NewValidationError("assignee is deactivated", nil)
		}
	}

	now := s.now()
	var before domain.Ticket
	var applied []ticketChange

	updated, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) ([]domain.ChatMessage, error) {
		if !access.CanModify(actor, t) {
			return nil, apperrors.NewForbidden("ticket modification not permitted")
		}
		before = *t
		applied = applyTicketUpdate(t, input, actor.Username, now, s.usernameLookup(ctx))

		msgs := make([]domain.ChatMessage, 0, len(applied))
		for _, change := range applied {
			msgs = append(msgs, domain.ChatMessage{
				AuthorID: actor.ID,
				Content:  change.message,
				Kind:     domain.MessageKindSystem,
			})
		}
		return msgs, nil
	})
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}

	s.publishChanges(ctx, actor, &before, updated, applied)
	return updated, nil
}

func (s *TicketService) refreshSticky(ctx context.Context, t *domain.Ticket) error {
	if t.SLAViolated {
		return nil
	}
	if sla.StickyViolation(false, s.now(), t.SLADeadline, t.Status) {
		t.SLAViolated = true
		return s.tickets.MarkSLAViolated(ctx, t.ID)
	}
	return nil
}

// usernameLookup resolves user ids to usernames for narration; unknown
// ids degrade to a placeholder rather than failing the whole update.
func (s *TicketService) usernameLookup(ctx context.Context) func(string) string {
	return func(id string) string {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return "unknown"
		}
		return user.Username
	}
}

func (s *TicketService) publishChanges(ctx context.Context, actor *domain.User, before, after *domain.Ticket, applied []ticketChange) {
	for _, change := range applied {
		event := events.Event{TicketID: after.ID, ActorID: actor.ID}
		switch change.event {
		case changeStatus:
			event.Type = events.EventTicketStatusChanged
			event.Payload = events.TicketStatusChangedPayload{
				OldStatus: before.Status,
				NewStatus: after.Status,
			}
		case changePriority:
			event.Type = events.EventTicketPriorityChanged
			event.Payload = events.TicketPriorityChangedPayload{
				OldPriority: before.Priority,
				NewPriority: after.Priority,
				Deadline:    after.SLADeadline,
			}
		case changeAssignee:
			event.Type = events.EventTicketAssigned
			event.Payload = events.TicketAssignedPayload{
				AssigneeID: after.AssigneeID,
			}
		default:
			continue
		}
		s.publish(ctx, event)
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
