package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/legal-intake/internal/api/dto"
	"github.com/spec-kit/legal-intake/internal/domain"
	"github.com/spec-kit/legal-intake/internal/service"
	apperrors "github.com/spec-kit/legal-intake/pkg/util/errorutil"
)

// LawyerTicketsHandler exposes the lawyer workspace endpoints.
type LawyerTicketsHandler struct {
	service *service.TicketService
}

// NewLawyerTicketsHandler constructs handler.
func NewLawyerTicketsHandler(ticketService *service.TicketService) *LawyerTicketsHandler {
	return &LawyerTicketsHandler{service: ticketService}
}

// ListTickets GET /lawyer/tickets.
func (h *LawyerTicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return err
	}
	page, err := h.service.ListTickets(c.UserContext(), caller, service.TicketListInput{
		Scope:  service.TicketScope{All: true},
		Limit:  limit,
		Cursor: c.Query("cursor"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketListResponse(page)})
}

// Claim POST /lawyer/tickets/:id/claim.
func (h *LawyerTicketsHandler) Claim(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ClaimTicket(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(&service.TicketView{Ticket: *ticket})})
}

// UpdateStatus PATCH /lawyer/tickets/:id/status.
func (h *LawyerTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, err := domain.ParseTicketStatus(req.Status)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "status"})
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), caller, id, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(&service.TicketView{Ticket: *ticket})})
}

// Reply POST /lawyer/tickets/:id/reply.
func (h *LawyerTicketsHandler) Reply(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AttachReply(c.UserContext(), caller, id, req.Reply)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(&service.TicketView{Ticket: *ticket})})
}

// History GET /lawyer/tickets/:id/history.
func (h *LawyerTicketsHandler) History(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListHistory(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	out := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.TicketHistoryResponse{
			ID:         entry.ID,
			TicketID:   domain.FormatTicketID(entry.TicketID),
			ActorID:    entry.ActorID,
			ChangeType: entry.ChangeType,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return out
}
