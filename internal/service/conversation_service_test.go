package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

func newConversationFixture(t *testing.T) (*ConversationService, *TicketService, *fakeMessageRepo, *recordingDispatcher) {
	t.Helper()
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo(admin, tech, collab)
	dispatcher := &recordingDispatcher{}

	ticketSvc := NewTicketService(TicketDependencies{TicketRepo: tickets, UserRepo: users, Dispatcher: dispatcher})
	ticketSvc.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }

	messages := &fakeMessageRepo{}
	return NewConversationService(tickets, messages, dispatcher), ticketSvc, messages, dispatcher
}

func TestPostRejectsEmptyContent(t *testing.T) {
	conversations, ticketSvc, _, _ := newConversationFixture(t)

	ticket, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	_, err = conversations.Post(context.Background(), collab, ticket.ID, "   ", domain.MessageKindUser)
	requireDomainCode(t, err, "VALIDATION_FAILED")
}

func TestPostEnforcesVisibility(t *testing.T) {
	conversations, ticketSvc, _, _ := newConversationFixture(t)

	ticket, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	stranger := &domain.User{ID: "u-stranger", Username: "mallory", Role: domain.RoleCollaborator, IsActive: true}
	_, err = conversations.Post(context.Background(), stranger, ticket.ID, "hi", domain.MessageKindUser)
	requireDomainCode(t, err, "FORBIDDEN")

	_, err = conversations.List(context.Background(), stranger, ticket.ID)
	requireDomainCode(t, err, "FORBIDDEN")
}

func TestPostStoresAndPublishes(t *testing.T) {
	conversations, ticketSvc, messages, dispatcher := newConversationFixture(t)

	ticket, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "t", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	msg, err := conversations.Post(context.Background(), tech, ticket.ID, "looking into it", domain.MessageKindUser)
	require.NoError(t, err)
	require.Equal(t, domain.MessageKindUser, msg.Kind)
	require.Equal(t, tech.ID, msg.AuthorID)

	stored, err := messages.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "looking into it", stored[0].Content)

	types := dispatcher.types()
	require.Equal(t, events.EventMessagePosted, types[len(types)-1])
}

func TestPostOnMissingTicket(t *testing.T) {
	conversations, _, _, _ := newConversationFixture(t)

	_, err := conversations.Post(context.Background(), tech, "nope", "hi", domain.MessageKindUser)
	requireDomainCode(t, err, "NOT_FOUND")
}
