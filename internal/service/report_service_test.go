package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func newReportFixture(t *testing.T) (*ReportService, *TicketService, *time.Time) {
	t.Helper()
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo(admin, tech, collab)
	dispatcher := &recordingDispatcher{}

	ticketSvc := NewTicketService(TicketDependencies{TicketRepo: tickets, UserRepo: users, Dispatcher: dispatcher})
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	ticketSvc.now = func() time.Time { return now }

	reportSvc := NewReportService(tickets, users, nil)
	reportSvc.now = func() time.Time { return now }
	return reportSvc, ticketSvc, &now
}

func TestExportCSVColumnsAndRows(t *testing.T) {
	reports, ticketSvc, now := newReportFixture(t)
	created := *now

	open, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "open one", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	overdue, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "late one", Description: "d", Department: "HR", Priority: domain.TicketPriorityCritical,
	})
	require.NoError(t, err)

	// Resolve the critical ticket an hour past its deadline.
	*now = created.Add(3 * time.Hour)
	resolved := domain.TicketStatusResolved
	_, err = ticketSvc.Update(context.Background(), tech, overdue.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := reports.ExportCSV(context.Background(), repository.TicketFilter{}, &buf)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, exportHeader, records[0])

	rows := map[string][]string{}
	for _, row := range records[1:] {
		require.Len(t, row, len(exportHeader))
		rows[row[0]] = row
	}

	openRow := rows[open.ID]
	require.Equal(t, "No", openRow[10])
	require.Equal(t, "", openRow[9])
	require.Equal(t, "alice", openRow[6])
	require.Equal(t, "", openRow[7])

	overdueRow := rows[overdue.ID]
	require.Equal(t, "Yes", overdueRow[10])
	require.NotEmpty(t, overdueRow[9])
	require.Equal(t, "RESOLVED", overdueRow[3])
}

func TestExportCSVAppliesFilter(t *testing.T) {
	reports, ticketSvc, _ := newReportFixture(t)

	_, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "it", Description: "d", Department: "IT",
	})
	require.NoError(t, err)
	_, err = ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "hr", Description: "d", Department: "HR",
	})
	require.NoError(t, err)

	department := "HR"
	var buf bytes.Buffer
	count, err := reports.ExportCSV(context.Background(), repository.TicketFilter{Department: &department}, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestExportCSVPaginatesBeyondOneBatch(t *testing.T) {
	reports, ticketSvc, _ := newReportFixture(t)
	reports.batch = 2

	titles := []string{"a", "b", "c", "d", "e"}
	for _, title := range titles {
		_, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
			Title: title, Description: "d", Department: "IT",
		})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	count, err := reports.ExportCSV(context.Background(), repository.TicketFilter{}, &buf)
	require.NoError(t, err)
	require.Equal(t, len(titles), count)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(titles)+1)

	seen := map[string]bool{}
	for _, row := range records[1:] {
		require.False(t, seen[row[0]], "duplicate row for %s", row[0])
		seen[row[0]] = true
	}

	stats, err := reports.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(titles), stats.Total)
}

func TestDashboardAggregates(t *testing.T) {
	reports, ticketSvc, now := newReportFixture(t)
	created := *now

	_, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "a", Description: "d", Department: "IT",
	})
	require.NoError(t, err)

	second, err := ticketSvc.Create(context.Background(), collab, TicketCreateInput{
		Title: "b", Description: "d", Department: "IT", Priority: domain.TicketPriorityCritical,
	})
	require.NoError(t, err)

	assignee := tech.ID
	inProgress := domain.TicketStatusInProgress
	_, err = ticketSvc.Update(context.Background(), admin, second.ID, TicketUpdateInput{
		Status:     &inProgress,
		AssigneeID: &assignee,
	})
	require.NoError(t, err)

	// Trip the critical ticket's deadline via a read.
	*now = created.Add(3 * time.Hour)
	_, err = ticketSvc.Get(context.Background(), tech, second.ID)
	require.NoError(t, err)

	stats, err := reports.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.ByStatus[domain.TicketStatusOpen])
	require.Equal(t, 1, stats.ByStatus[domain.TicketStatusInProgress])
	require.Equal(t, 1, stats.ByPriority[domain.TicketPriorityCritical])
	require.Equal(t, 1, stats.SLAViolated)
	require.Equal(t, 1, stats.Unassigned)
}
