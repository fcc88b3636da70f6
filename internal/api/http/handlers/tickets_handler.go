package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/legal-intake/internal/api/dto"
	"github.com/spec-kit/legal-intake/internal/auth"
	"github.com/spec-kit/legal-intake/internal/domain"
	"github.com/spec-kit/legal-intake/internal/service"
	apperrors "github.com/spec-kit/legal-intake/pkg/util/errorutil"
)

// TicketsHandler manages client-facing ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), caller, service.TicketCreateInput{
		UserID:  req.UserID,
		Subject: req.Subject,
		Text:    req.Text,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		TicketID: ticket.TicketID(),
		Area:     ticket.Area,
		Summary:  ticket.Summary,
		Status:   ticket.Status,
	}})
}

// ListOwnTickets GET /tickets.
func (h *TicketsHandler) ListOwnTickets(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	return h.list(c, caller, service.TicketScope{UserID: caller.UserID})
}

// ListUserTickets GET /users/:userId/tickets.
func (h *TicketsHandler) ListUserTickets(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	return h.list(c, caller, service.TicketScope{UserID: c.Params("userId")})
}

func (h *TicketsHandler) list(c *fiber.Ctx, caller domain.Caller, scope service.TicketScope) error {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return err
	}
	page, err := h.service.ListTickets(c.UserContext(), caller, service.TicketListInput{
		Scope:  scope,
		Limit:  limit,
		Cursor: c.Query("cursor"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketListResponse(page)})
}

func callerFrom(c *fiber.Ctx) (domain.Caller, error) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return domain.Caller{}, apperrors.NewUnauthorized("authentication required", "")
	}
	return caller, nil
}

// parseLimit returns 0 for an absent limit so the service default applies.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperrors.NewValidationError("limit must be a positive integer", map[string]any{"field": "limit"})
	}
	return limit, nil
}

func ticketIDParam(c *fiber.Ctx) (int64, error) {
	id, err := domain.ParseTicketID(c.Params("id"))
	if err != nil {
		return 0, apperrors.NewValidationError(err.Error(), map[string]any{"field": "ticketId"})
	}
	return id, nil
}

func ticketListResponse(page *service.TicketPage) dto.TicketListResponse {
	items := make([]dto.TicketResponse, 0, len(page.Tickets))
	for i := range page.Tickets {
		items = append(items, ticketResponse(&page.Tickets[i]))
	}
	return dto.TicketListResponse{Tickets: items, NextCursor: page.NextCursor}
}

func ticketResponse(view *service.TicketView) dto.TicketResponse {
	return dto.TicketResponse{
		TicketID:    view.TicketID(),
		UserID:      view.UserID,
		UserName:    view.UserName,
		UserEmail:   view.UserEmail,
		Subject:     view.Subject,
		Text:        view.Text,
		Area:        view.Area,
		Summary:     view.Summary,
		Explanation: view.Explanation,
		AnswerIA:    view.AnswerIA,
		Status:      view.Status,
		Reply:       view.Reply,
		RespondedAt: view.RespondedAt,
		LawyerID:    view.LawyerID,
		LawyerName:  view.LawyerName,
		CreatedAt:   view.CreatedAt,
	}
}
