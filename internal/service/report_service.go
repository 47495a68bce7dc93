package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ReportService produces the CSV export and the cached dashboard
// aggregates.
type ReportService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	cache   *persistence.Redis
	batch   int
	now     func() time.Time
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository, users repository.UserRepository, cache *persistence.Redis) *ReportService {
	return &ReportService{tickets: tickets, users: users, cache: cache, batch: exportBatchSize, now: time.Now}
}

// DashboardStats aggregates the ticket population for the overview
// screen.
type DashboardStats struct {
	Total       int                           `json:"total"`
	ByStatus    map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority  map[domain.TicketPriority]int `json:"by_priority"`
	SLAViolated int                           `json:"sla_violated"`
	Unassigned  int                           `json:"unassigned"`
	GeneratedAt time.Time                     `json:"generated_at"`
}

const (
	dashboardCacheKey = "helpdesk:dashboard_stats"
	dashboardCacheTTL = 30 * time.Second
	exportBatchSize   = 1000
	exportTimeLayout  = "2006-01-02 15:04:05"
)

var exportHeader = []string{
	"ID", "Title", "Description", "Status", "Priority", "Department",
	"Requester", "Assignee", "Created At", "Resolved At", "SLA Violated", "Observations",
}

// ExportCSV writes the filtered ticket set as CSV and returns the row
// count written, header excluded. The ticket set is walked in batches,
// so the export covers every matching row no matter how large the set.
func (s *ReportService) ExportCSV(ctx context.Context, filter repository.TicketFilter, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return 0, err
	}

	names := map[string]string{}
	nameOf := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := "unknown"
		if user, err := s.users.GetByID(ctx, id); err == nil {
			name = user.Username
		}
		names[id] = name
		return name
	}

	total := 0
	err := s.forEachTicket(ctx, filter, func(t *domain.Ticket) error {
		assignee := ""
		if t.AssigneeID != nil {
			assignee = nameOf(*t.AssigneeID)
		}
		resolvedAt := ""
		if t.ResolvedAt != nil {
			resolvedAt = t.ResolvedAt.Format(exportTimeLayout)
		}
		violated := "No"
		if t.SLAViolated {
			violated = "Yes"
		}
		row := []string{
			t.ID,
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			t.Department,
			nameOf(t.RequesterID),
			assignee,
			t.CreatedAt.Format(exportTimeLayout),
			resolvedAt,
			violated,
			t.Observations,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
		total++
		return nil
	})
	if err != nil {
		return total, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return total, err
	}
	return total, nil
}

// forEachTicket pages through the filtered ticket set in batches.
func (s *ReportService) forEachTicket(ctx context.Context, filter repository.TicketFilter, fn func(*domain.Ticket) error) error {
	filter.Limit = s.batch
	filter.Offset = 0
	for {
		page, err := s.tickets.ListWithFilter(ctx, filter)
		if err != nil {
			return err
		}
		for i := range page {
			if err := fn(&page[i]); err != nil {
				return err
			}
		}
		if len(page) < s.batch {
			return nil
		}
		filter.Offset += s.batch
	}
}

// Dashboard returns the aggregate counters, served from the Redis cache
// when fresh. Cache failures fall through to a live computation.
func (s *ReportService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil && s.cache.Client != nil {
		if raw, err := s.cache.Client.Get(ctx, dashboardCacheKey).Bytes(); err == nil {
			var cached DashboardStats
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.computeDashboard(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.Client != nil {
		if raw, err := json.Marshal(stats); err == nil {
			_ = s.cache.Client.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL).Err()
		}
	}
	return stats, nil
}

func (s *ReportService) computeDashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		ByStatus:    map[domain.TicketStatus]int{},
		ByPriority:  map[domain.TicketPriority]int{},
		GeneratedAt: s.now(),
	}
	err := s.forEachTicket(ctx, repository.TicketFilter{}, func(t *domain.Ticket) error {
		stats.Total++
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		if t.SLAViolated {
			stats.SLAViolated++
		}
		if t.AssigneeID == nil {
			stats.Unassigned++
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("unable to compute dashboard stats", err)
	}
	return stats, nil
}
