package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

func captureTicketQuery(t *testing.T, target string) service.TicketListFilter {
	t.Helper()
	app := fiber.New()
	var got service.TicketListFilter
	app.Get("/tickets", func(c *fiber.Ctx) error {
		got = parseTicketQuery(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return got
}

func TestParseTicketQueryAssignedTo(t *testing.T) {
	filter := captureTicketQuery(t, "/tickets?assigned_to=u-tech&status=OPEN")
	require.NotNil(t, filter.AssigneeID)
	require.Equal(t, "u-tech", *filter.AssigneeID)
	require.NotNil(t, filter.Status)
	require.Equal(t, domain.TicketStatusOpen, *filter.Status)
}

func TestParseTicketQueryAssigneeIDAlias(t *testing.T) {
	filter := captureTicketQuery(t, "/tickets?assignee_id=u-2")
	require.NotNil(t, filter.AssigneeID)
	require.Equal(t, "u-2", *filter.AssigneeID)
}

func TestParseTicketQueryPaging(t *testing.T) {
	filter := captureTicketQuery(t, "/tickets?page=3&page_size=10")
	require.Equal(t, 10, filter.Limit)
	require.Equal(t, 20, filter.Offset)

	filter = captureTicketQuery(t, "/tickets")
	require.Equal(t, 20, filter.Limit)
	require.Equal(t, 0, filter.Offset)
	require.Nil(t, filter.AssigneeID)
}
