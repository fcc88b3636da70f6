package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/legal-intake/internal/config"
	"github.com/spec-kit/legal-intake/internal/domain"
	"github.com/spec-kit/legal-intake/internal/events"
	"github.com/spec-kit/legal-intake/internal/repository"
	"github.com/spec-kit/legal-intake/internal/sequence"
	apperrors "github.com/spec-kit/legal-intake/pkg/util/errorutil"
)

// Classifier labels ticket text. Implementations must not fail.
type Classifier interface {
	Classify(ctx context.Context, text string) domain.Classification
}

// TicketCounter is told about every committed ticket.
type TicketCounter interface {
	RecordTicketCreated()
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	profiles   repository.ProfileRepository
	allocator  sequence.Allocator
	classifier Classifier
	dispatcher events.Dispatcher
	counter    TicketCounter
	pagination config.PaginationConfig
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service. History,
// Profiles, Dispatcher and Counter are optional.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	ProfileRepo repository.ProfileRepository
	Allocator   sequence.Allocator
	Classifier  Classifier
	Dispatcher  events.Dispatcher
	Counter     TicketCounter
	Pagination  config.PaginationConfig
	Logger      *zap.Logger
	Clock       func() time.Time
}

// TicketCreateInput describes ticket creation payload. An empty UserID means
// the caller owns the ticket.
type TicketCreateInput struct {
	UserID  string
	Subject string
	Text    string
}

// TicketScope picks the partition a listing reads: every ticket, or the
// tickets of one user.
type TicketScope struct {
	All    bool
	UserID string
}

// TicketListInput describes one page request.
type TicketListInput struct {
	Scope  TicketScope
	Limit  int
	Cursor string
}

// TicketView is a ticket with display names resolved from profiles.
type TicketView struct {
	domain.Ticket
	LawyerName *string
	UserName   *string
	UserEmail  *string
}

// TicketPage is one page of a listing.
type TicketPage struct {
	Tickets    []TicketView
	NextCursor *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	pagination := deps.Pagination
	if pagination.DefaultLimit <= 0 {
		pagination.DefaultLimit = 10
	}
	if pagination.MaxLimit < pagination.DefaultLimit {
		pagination.MaxLimit = pagination.DefaultLimit
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		profiles:   deps.ProfileRepo,
		allocator:  deps.Allocator,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		counter:    deps.Counter,
		pagination: pagination,
		logger:     logger,
		now:        clock,
	}
}

// CreateTicket validates, classifies, allocates an id and persists a ticket.
// The store write is the only commit point: a failure before it leaves no
// record, and a failure after allocation leaves the id unused.
func (s *TicketService) CreateTicket(ctx context.Context, caller domain.Caller, input TicketCreateInput) (*domain.Ticket, error) {
	if !caller.Is(domain.RoleClient, domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("only clients can open tickets", "")
	}
	owner := strings.TrimSpace(input.UserID)
	if owner == "" {
		owner = caller.UserID
	}
	if caller.Role == domain.RoleClient && owner != caller.UserID {
		return nil, apperrors.NewForbidden("cannot open tickets for another user", "")
	}
	text := strings.TrimSpace(input.Text)
	if err := domain.ValidateNew(owner, text); err != nil {
		return nil, validationError(err)
	}

	classification := s.classifier.Classify(ctx, text)

	id, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, apperrors.NewAllocationFailed(err)
	}

	ticket := &domain.Ticket{
		ID:        id,
		UserID:    owner,
		Subject:   strings.TrimSpace(input.Subject),
		Text:      text,
		Status:    domain.TicketStatusNew,
		CreatedAt: s.timestamp(),
	}
	ticket.ApplyClassification(classification)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.logger.Error("ticket write failed after allocation",
			zap.Int64("ticket_id", id),
			zap.Error(err))
		if errors.Is(err, repository.ErrInvalidTicket) {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		return nil, apperrors.NewStorageError(err)
	}

	if s.counter != nil {
		s.counter.RecordTicketCreated()
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.TicketID(),
		Actor:    actorOf(caller),
		Payload: events.TicketCreatedPayload{
			OwnerID:  ticket.UserID,
			Area:     ticket.Area,
			Subject:  ticket.Subject,
			Fallback: classification == domain.FallbackClassification(),
		},
	})
	return ticket, nil
}

// ListTickets returns one page of tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, caller domain.Caller, input TicketListInput) (*TicketPage, error) {
	scope := input.Scope
	scope.UserID = strings.TrimSpace(scope.UserID)
	switch {
	case scope.All && scope.UserID != "":
		return nil, apperrors.NewValidationError("scope must be either all or a single user", nil)
	case scope.All:
		if !caller.Is(domain.RoleLawyer, domain.RoleAdmin) {
			return nil, apperrors.NewForbidden("only lawyers can list every ticket", "")
		}
	case scope.UserID != "":
		if caller.Role == domain.RoleClient && scope.UserID != caller.UserID {
			return nil, apperrors.NewForbidden("cannot list tickets of another user", "")
		}
		if !caller.Is(domain.RoleClient, domain.RoleLawyer, domain.RoleAdmin) {
			return nil, apperrors.NewForbidden("role cannot list tickets", "")
		}
	default:
		return nil, apperrors.NewValidationError("scope is required", map[string]any{"field": "scope"})
	}

	limit, err := s.pageLimit(input.Limit)
	if err != nil {
		return nil, err
	}

	page, err := s.tickets.ListByRecency(ctx, repository.ListQuery{
		UserID: scope.UserID,
		Limit:  limit,
		Cursor: strings.TrimSpace(input.Cursor),
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, apperrors.NewValidationError("invalid cursor", map[string]any{"field": "cursor"})
		}
		return nil, apperrors.NewStorageError(err)
	}

	return &TicketPage{
		Tickets:    s.enrich(ctx, page.Items, scope.All),
		NextCursor: page.NextCursor,
	}, nil
}

// ClaimTicket opens a New ticket for the calling lawyer. Claiming an Open
// ticket is a no-op.
func (s *TicketService) ClaimTicket(ctx context.Context, caller domain.Caller, ticketID int64) (*domain.Ticket, error) {
	if !caller.Is(domain.RoleLawyer) {
		return nil, apperrors.NewForbidden("only lawyers can claim tickets", "")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	switch ticket.Status {
	case domain.TicketStatusOpen:
		return ticket, nil
	case domain.TicketStatusNew:
		return s.transition(ctx, caller, ticket, domain.TicketStatusOpen)
	default:
		return nil, apperrors.NewConflict("only new tickets can be claimed", map[string]any{
			"status": ticket.Status,
		})
	}
}

// UpdateStatus moves a ticket through the status lifecycle. Setting the
// current status again succeeds without a change.
func (s *TicketService) UpdateStatus(ctx context.Context, caller domain.Caller, ticketID int64, next domain.TicketStatus) (*domain.Ticket, error) {
	if !caller.Is(domain.RoleLawyer) {
		return nil, apperrors.NewForbidden("only lawyers can change ticket status", "")
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"field":   "status",
			"allowed": []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusOpen, domain.TicketStatusClosed},
		})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == next {
		return ticket, nil
	}
	return s.transition(ctx, caller, ticket, next)
}

// AttachReply records a lawyer's answer. It never changes status.
func (s *TicketService) AttachReply(ctx context.Context, caller domain.Caller, ticketID int64, reply string) (*domain.Ticket, error) {
	if !caller.Is(domain.RoleLawyer) {
		return nil, apperrors.NewForbidden("only lawyers can reply to tickets", "")
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, validationError(domain.ErrReplyRequired)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	respondedAt := s.timestamp()
	if err := s.tickets.AttachReply(ctx, ticketID, reply, caller.UserID, respondedAt); err != nil {
		return nil, storeError(err, ticketID)
	}

	previous := map[string]any{}
	if ticket.Reply != nil {
		previous["reply"] = *ticket.Reply
	}
	if ticket.LawyerID != nil {
		previous["lawyerId"] = *ticket.LawyerID
	}
	s.recordHistory(ctx, caller, ticketID, domain.ChangeTypeReply, previous, map[string]any{
		"reply":    reply,
		"lawyerId": caller.UserID,
	})

	ticket.Reply = &reply
	ticket.RespondedAt = &respondedAt
	ticket.LawyerID = &caller.UserID

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReplied,
		TicketID: ticket.TicketID(),
		Actor:    actorOf(caller),
		Payload: events.TicketRepliedPayload{
			OwnerID:      ticket.UserID,
			LawyerID:     caller.UserID,
			ReplyPreview: stringPreview(reply, 120),
		},
	})
	return ticket, nil
}

// ListHistory returns the audit trail of a ticket, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, caller domain.Caller, ticketID int64) ([]domain.TicketHistory, error) {
	if !caller.Is(domain.RoleLawyer, domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("only lawyers can read ticket history", "")
	}
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return entries, nil
}

func (s *TicketService) transition(ctx context.Context, caller domain.Caller, ticket *domain.Ticket, next domain.TicketStatus) (*domain.Ticket, error) {
	current := ticket.Status
	if !isValidTransition(current, next) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from":    current,
			"to":      next,
			"allowed": AllowedTransitions(current),
		})
	}
	if err := s.tickets.UpdateStatus(ctx, ticket.ID, current, next); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewConflict("ticket status changed concurrently", map[string]any{"from": current})
		}
		return nil, storeError(err, ticket.ID)
	}
	ticket.Status = next

	s.recordHistory(ctx, caller, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": current},
		map[string]any{"status": next},
	)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.TicketID(),
		Actor:    actorOf(caller),
		Payload: events.TicketStatusChangedPayload{
			OwnerID:   ticket.UserID,
			OldStatus: current,
			NewStatus: next,
		},
	})
	return ticket, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, ticketID)
	}
	return ticket, nil
}

func (s *TicketService) pageLimit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, apperrors.NewValidationError("limit must be positive", map[string]any{"field": "limit"})
	case requested == 0:
		return s.pagination.DefaultLimit, nil
	case requested > s.pagination.MaxLimit:
		return s.pagination.MaxLimit, nil
	}
	return requested, nil
}

// enrich resolves lawyer names, and owner name and email for the global
// feed, with one profile lookup per page. Lookup failures leave names unset.
func (s *TicketService) enrich(ctx context.Context, tickets []domain.Ticket, withOwner bool) []TicketView {
	views := make([]TicketView, len(tickets))
	for i := range tickets {
		views[i] = TicketView{Ticket: tickets[i]}
	}
	if s.profiles == nil || len(tickets) == 0 {
		return views
	}

	seen := map[string]struct{}{}
	ids := []string{}
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, ticket := range tickets {
		if ticket.LawyerID != nil {
			add(*ticket.LawyerID)
		}
		if withOwner {
			add(ticket.UserID)
		}
	}
	if len(ids) == 0 {
		return views
	}

	profiles, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warn("profile enrichment skipped", zap.Error(err))
		return views
	}
	for i := range views {
		if lawyerID := views[i].LawyerID; lawyerID != nil {
			if profile, ok := profiles[*lawyerID]; ok {
				views[i].LawyerName = nonEmpty(profile.DisplayName())
			}
		}
		if withOwner {
			if profile, ok := profiles[views[i].UserID]; ok {
				views[i].UserName = nonEmpty(profile.DisplayName())
				views[i].UserEmail = nonEmpty(profile.Email)
			}
		}
	}
	return views
}

// recordHistory appends to the audit trail. The ticket change is already
// committed, so a failed append is logged rather than returned.
func (s *TicketService) recordHistory(ctx context.Context, caller domain.Caller, ticketID int64, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		ActorID:    caller.UserID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  s.timestamp(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("history append failed",
			zap.Int64("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// timestamp is truncated to the precision Postgres stores.
func (s *TicketService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func actorOf(caller domain.Caller) events.Actor {
	return events.Actor{UserID: caller.UserID, Role: caller.Role}
}

func validationError(err error) error {
	details := map[string]any{}
	switch {
	case errors.Is(err, domain.ErrUserIDRequired):
		details["field"] = "userId"
	case errors.Is(err, domain.ErrTextRequired):
		details["field"] = "text"
	case errors.Is(err, domain.ErrReplyRequired):
		details["field"] = "reply"
	}
	return apperrors.NewValidationError(err.Error(), details)
}

func storeError(err error, ticketID int64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("ticket", map[string]any{"ticketId": domain.FormatTicketID(ticketID)})
	case errors.Is(err, repository.ErrInvalidTicket):
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return apperrors.NewStorageError(err)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func nonEmpty(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
