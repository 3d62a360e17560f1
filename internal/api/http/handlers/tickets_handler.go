package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/filter"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket workflows.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	input, err := parseTicketRequest(c)
	if err != nil {
		return err
	}
	res := h.service.Create(c.UserContext(), input)
	if !res.OK {
		return resultError(res)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(res.Ticket), "message": res.Message})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	input, err := parseTicketRequest(c)
	if err != nil {
		return err
	}
	res := h.service.Update(c.UserContext(), id, input)
	if !res.OK {
		return resultError(res)
	}
	return c.JSON(fiber.Map{"data": ticketResponse(res.Ticket), "message": res.Message})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	res := h.service.Get(c.UserContext(), id)
	if !res.OK {
		return resultError(res)
	}
	return c.JSON(fiber.Map{"data": ticketResponse(res.Ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	criteria, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, res := h.service.List(c.UserContext(), criteria)
	if !res.OK {
		return resultError(res)
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items, "message": res.Message})
}

// Counts GET /tickets/counts.
func (h *TicketsHandler) Counts(c *fiber.Ctx) error {
	counts, res := h.service.Counts(c.UserContext())
	if !res.OK {
		return resultError(res)
	}
	return c.JSON(fiber.Map{
		"data":    dto.CountsResponse{Total: counts.Total, Open: counts.Open, Closed: counts.Closed},
		"message": res.Message,
	})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	res := h.service.Delete(c.UserContext(), id)
	if !res.OK {
		return resultError(res)
	}
	return c.JSON(fiber.Map{"data": dto.DeleteResponse{Affected: res.Affected}, "message": res.Message})
}

// ClearTickets DELETE /tickets.
func (h *TicketsHandler) ClearTickets(c *fiber.Ctx) error {
	res := h.service.ClearAll(c.UserContext())
	if !res.OK {
		return resultError(res)
	}
	return c.JSON(fiber.Map{"data": dto.DeleteResponse{Affected: res.Affected}, "message": res.Message})
}

func parseTicketRequest(c *fiber.Ctx) (service.TicketInput, error) {
	var req dto.TicketRequest
	if err := c.BodyParser(&req); err != nil {
		return service.TicketInput{}, apperrors.NewBadRequest("invalid payload", nil)
	}
	input := service.TicketInput{
		IssueTitle:         req.IssueTitle,
		Description:        req.Description,
		CategoryID:         req.CategoryID,
		AssignedEmployeeID: req.AssignedEmployeeID,
		Status:             req.Status,
		ResolutionNotes:    req.ResolutionNotes,
	}
	if req.ResolvedAt != nil && strings.TrimSpace(*req.ResolvedAt) != "" {
		resolvedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ResolvedAt))
		if err != nil {
			return service.TicketInput{}, apperrors.NewBadRequest("resolved_at must be RFC3339", map[string]any{"resolved_at": *req.ResolvedAt})
		}
		input.ResolvedAt = &resolvedAt
	}
	return input, nil
}

func parseTicketQuery(c *fiber.Ctx) (filter.Criteria, error) {
	criteria := filter.Criteria{}

	status, ok := filter.ParseStatus(c.Query("status"))
	if !ok {
		return criteria, apperrors.NewBadRequest("unknown status filter", map[string]any{"status": c.Query("status")})
	}
	criteria.Status = status

	categoryID, err := optionalID(c.Query("category_id"))
	if err != nil {
		return criteria, apperrors.NewBadRequest("category_id must be a number", nil)
	}
	criteria.CategoryID = categoryID

	employeeID, err := optionalID(c.Query("employee_id"))
	if err != nil {
		return criteria, apperrors.NewBadRequest("employee_id must be a number", nil)
	}
	criteria.EmployeeID = employeeID

	return criteria.Normalize(), nil
}

// optionalID parses an id query value. Empty text and "All" mean no constraint.
func optionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, filter.AllStatuses) {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequest("ticket id must be a positive number", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

// resultError renders a failed service result as an API error.
func resultError(res service.Result) error {
	switch res.Kind {
	case service.ResultValidation:
		return apperrors.NewValidationError(res.Message, map[string]any{"rule": string(res.Rule)})
	case service.ResultNotFound:
		return apperrors.NewNotFound(res.Message, nil)
	case service.ResultPersistence:
		details := map[string]any{}
		if res.Affected > 0 {
			details["affected"] = res.Affected
		}
		return apperrors.NewPersistenceError(res.Message, details)
	default:
		return apperrors.NewInternalError(nil)
	}
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                 ticket.ID,
		IssueTitle:         ticket.IssueTitle,
		Description:        ticket.Description,
		CategoryID:         ticket.CategoryID,
		AssignedEmployeeID: ticket.AssignedEmployeeID,
		Status:             ticket.Status,
		DateCreated:        ticket.DateCreated,
		DateResolved:       ticket.DateResolved,
		ResolutionNotes:    ticket.ResolutionNotes,
		Summary:            ticket.Summary(),
	}
}
