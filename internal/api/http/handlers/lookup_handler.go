package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// LookupHandler serves the category and employee reference lists.
type LookupHandler struct {
	service *service.TicketService
}

// NewLookupHandler constructs handler.
func NewLookupHandler(ticketService *service.TicketService) *LookupHandler {
	return &LookupHandler{service: ticketService}
}

// Categories GET /categories.
func (h *LookupHandler) Categories(c *fiber.Ctx) error {
	categories, res := h.service.ListCategories(c.UserContext())
	if !res.OK {
		return resultError(res)
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, dto.CategoryResponse{ID: category.ID, Name: category.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Employees GET /employees.
func (h *LookupHandler) Employees(c *fiber.Ctx) error {
	employees, res := h.service.ListEmployees(c.UserContext())
	if !res.OK {
		return resultError(res)
	}
	items := make([]dto.EmployeeResponse, 0, len(employees))
	for _, employee := range employees {
		items = append(items, dto.EmployeeResponse{ID: employee.ID, FullName: employee.FullName})
	}
	return c.JSON(fiber.Map{"data": items})
}
