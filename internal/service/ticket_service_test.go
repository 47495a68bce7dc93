package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

var (
	admin    = &domain.User{ID: "u-admin", Username: "root", Role: domain.RoleAdministrator, IsActive: true}
	tech     = &domain.User{ID: "u-tech", Username: "carol", Role: domain.RoleTechnician, IsActive: true}
	tech2    = &domain.User{ID: "u-tech2", Username: "dave", Role: domain.RoleTechnician, IsActive: true}
	collab   = &domain.User{ID: "u-collab", Username: "alice", Role: domain.RoleCollaborator, IsActive: true}
	director = &domain.User{ID: "u-dir", Username: "frank", Role: domain.RoleDirector, IsActive: true}
)

func newTicketFixture(t *testing.T) (*TicketService, *fakeTicketRepo, *recordingDispatcher, *time.Time) {
	t.Helper()
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo(admin, tech, tech2, collab, director)
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{TicketRepo: tickets, UserRepo: users, Dispatcher: dispatcher})

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, tickets, dispatcher, &now
}

func TestCreateSetsDeadlineAndOpeningMessage(t *testing.T) {
	svc, tickets, dispatcher, now := newTicketFixture(t)

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title:       "Printer down",
		Description: "Second floor printer jams",
		Department:  "IT",
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.Equal(t, now.Add(4*time.Hour), ticket.SLADeadline)
	require.False(t, ticket.SLAViolated)

	messages := tickets.messagesFor(ticket.ID)
	require.Len(t, messages, 1)
	require.Equal(t, domain.MessageKindSystem, messages[0].Kind)
	require.Equal(t, "Ticket created by alice", messages[0].Content)

	require.Equal(t, []events.EventType{events.EventTicketCreated}, dispatcher.types())
}

func TestCreateDefaultsToMediumPriority(t *testing.T) {
	svc, _, _, now := newTicketFixture(t)

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "x", Description: "y", Department: "IT",
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	require.Equal(t, now.Add(8*time.Hour), ticket.SLADeadline)
}

func TestUpdatePriorityRecomputesDeadlineFromCreation(t *testing.T) {
	svc, tickets, _, now := newTicketFixture(t)
	created := *now

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "slow vpn", Description: "latency spikes", Department: "IT",
	})
	require.NoError(t, err)

	// An hour passes before a technician escalates.
	*now = created.Add(time.Hour)
	priority := domain.TicketPriorityCritical
	updated, err := svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{Priority: &priority})
	require.NoError(t, err)

	// Deadline anchors at creation, not at the escalation instant.
	require.Equal(t, created.Add(2*time.Hour), updated.SLADeadline)

	messages := tickets.messagesFor(ticket.ID)
	require.Equal(t, "Priority changed from MEDIUM to CRITICAL by carol", messages[len(messages)-1].Content)
}

func TestUpdateStampsResolvedAtOnce(t *testing.T) {
	svc, _, _, now := newTicketFixture(t)
	created := *now

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	resolved := domain.TicketStatusResolved
	open := domain.TicketStatusOpen

	*now = created.Add(time.Hour)
	first, err := svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.NotNil(t, first.ResolvedAt)
	firstStamp := *first.ResolvedAt

	*now = created.Add(2 * time.Hour)
	_, err = svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{Status: &open})
	require.NoError(t, err)

	*now = created.Add(3 * time.Hour)
	again, err := svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.Equal(t, firstStamp, *again.ResolvedAt)
}

func TestConcurrentResolvesStampOnce(t *testing.T) {
	svc, tickets, _, now := newTicketFixture(t)
	created := *now

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	*now = created.Add(time.Hour)
	resolved := domain.TicketStatusResolved

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{Status: &resolved})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := svc.Get(context.Background(), tech, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	require.Equal(t, created.Add(time.Hour), *got.ResolvedAt)

	// Only the update that actually changed the status narrates.
	narrated := 0
	for _, msg := range tickets.messagesFor(ticket.ID) {
		if strings.Contains(msg.Content, "Status changed") {
			narrated++
		}
	}
	require.Equal(t, 1, narrated)
}

func TestResolvingOverdueTicketRecordsViolation(t *testing.T) {
	svc, _, _, now := newTicketFixture(t)
	created := *now

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT", Priority: domain.TicketPriorityCritical,
	})
	require.NoError(t, err)

	// Resolve three hours in, one hour past the critical deadline.
	*now = created.Add(3 * time.Hour)
	resolved := domain.TicketStatusResolved
	updated, err := svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.True(t, updated.SLAViolated)

	// The flag never reverts.
	*now = created.Add(4 * time.Hour)
	got, err := svc.Get(context.Background(), tech, ticket.ID)
	require.NoError(t, err)
	require.True(t, got.SLAViolated)
}

func TestGetPersistsStickyViolationLazily(t *testing.T) {
	svc, tickets, _, now := newTicketFixture(t)
	created := *now

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT", Priority: domain.TicketPriorityHigh,
	})
	require.NoError(t, err)

	*now = created.Add(5 * time.Hour)
	got, err := svc.Get(context.Background(), tech, ticket.ID)
	require.NoError(t, err)
	require.True(t, got.SLAViolated)
	require.Contains(t, tickets.marked, ticket.ID)
}

func TestAssigneeNarration(t *testing.T) {
	svc, tickets, dispatcher, _ := newTicketFixture(t)

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	assignee := tech2.ID
	_, err = svc.Update(context.Background(), admin, ticket.ID, TicketUpdateInput{AssigneeID: &assignee})
	require.NoError(t, err)

	clear := ""
	_, err = svc.Update(context.Background(), admin, ticket.ID, TicketUpdateInput{AssigneeID: &clear})
	require.NoError(t, err)

	messages := tickets.messagesFor(ticket.ID)
	require.Len(t, messages, 3)
	require.Equal(t, "Assigned technician changed from none to dave by root", messages[1].Content)
	require.Equal(t, "Assigned technician removed (dave) by root", messages[2].Content)

	require.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketAssigned,
	}, dispatcher.types())
}

func TestCollaboratorEditWindowClosesWithTriage(t *testing.T) {
	svc, _, _, _ := newTicketFixture(t)

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	// Requester can edit while the ticket is still OPEN.
	title := "updated title"
	_, err = svc.Update(context.Background(), collab, ticket.ID, TicketUpdateInput{Title: &title})
	require.NoError(t, err)

	inProgress := domain.TicketStatusInProgress
	_, err = svc.Update(context.Background(), tech, ticket.ID, TicketUpdateInput{Status: &inProgress})
	require.NoError(t, err)

	// Once triaged the requester is locked out.
	title = "too late"
	_, err = svc.Update(context.Background(), collab, ticket.ID, TicketUpdateInput{Title: &title})
	requireDomainCode(t, err, "FORBIDDEN")
}

func TestDirectorIsReadOnly(t *testing.T) {
	svc, _, _, _ := newTicketFixture(t)

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	title := "nope"
	_, err = svc.Update(context.Background(), director, ticket.ID, TicketUpdateInput{Title: &title})
	requireDomainCode(t, err, "FORBIDDEN")

	_, err = svc.Get(context.Background(), director, ticket.ID)
	require.NoError(t, err)
}

func TestListScopesCollaboratorToOwnTickets(t *testing.T) {
	svc, _, _, _ := newTicketFixture(t)

	mine, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "mine", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	other := &domain.User{ID: "u-other", Username: "eve", Role: domain.RoleCollaborator, IsActive: true}
	_, err = svc.Create(context.Background(), other, TicketCreateInput{
		Title: "theirs", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), collab, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, mine.ID, listed[0].ID)

	all, err := svc.List(context.Background(), tech, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestUpdateRejectsUnknownAssignee(t *testing.T) {
	svc, _, _, _ := newTicketFixture(t)

	ticket, err := svc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	ghost := "u-ghost"
	_, err = svc.Update(context.Background(), admin, ticket.ID, TicketUpdateInput{AssigneeID: &ghost})
	requireDomainCode(t, err, "VALIDATION_FAILED")
}

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, code, domainErr.Code)
}
