package handlers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ReportsHandler serves the CSV export and dashboard aggregates.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Export GET /api/reports/export. Returns the filtered ticket set as a
// CSV download. The body is buffered so a failure mid-export still maps
// to an error status instead of a broken download.
func (h *ReportsHandler) Export(c *fiber.Ctx) error {
	filter := parseExportQuery(c)

	var buf bytes.Buffer
	if _, err := h.service.ExportCSV(c.Context(), filter, &buf); err != nil {
		return err
	}

	filename := "tickets-" + time.Now().Format("2006-01-02") + ".csv"
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

// Dashboard GET /api/dashboard/stats.
func (h *ReportsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Dashboard(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

func parseExportQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if status := c.Query("status"); status != "" {
		s := domain.TicketStatus(status)
		filter.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := domain.TicketPriority(priority)
		filter.Priority = &p
	}
	if department := c.Query("department"); department != "" {
		filter.Department = &department
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}
