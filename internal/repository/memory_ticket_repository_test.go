package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/legal-intake/internal/domain"
)

func newTestTicket(id int64, userID string, createdAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:        id,
		UserID:    userID,
		Text:      "question",
		Area:      domain.AreaOther,
		Status:    domain.TicketStatusNew,
		CreatedAt: createdAt,
	}
}

func collectAll(t *testing.T, repo TicketRepository, userID string, limit int) []int64 {
	t.Helper()
	var (
		ids    []int64
		cursor string
	)
	for pages := 0; pages < 100; pages++ {
		page, err := repo.ListByRecency(context.Background(), ListQuery{UserID: userID, Limit: limit, Cursor: cursor})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Items), limit)
		for _, item := range page.Items {
			ids = append(ids, item.ID)
		}
		if page.NextCursor == nil {
			return ids
		}
		cursor = *page.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestMemoryTicketRepositoryCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newTestTicket(1, "u1", now)))
	assert.ErrorIs(t, repo.Create(ctx, newTestTicket(1, "u2", now)), ErrDuplicate)

	invalid := newTestTicket(2, "", now)
	assert.ErrorIs(t, repo.Create(ctx, invalid), ErrInvalidTicket)
	assert.Equal(t, 1, repo.Len())

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = repo.GetByID(ctx, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTicketRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	require.NoError(t, repo.Create(ctx, newTestTicket(1, "u1", time.Now().UTC())))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	got.Status = domain.TicketStatusClosed

	again, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, again.Status)
}

func TestMemoryTicketRepositoryPaginationWithTies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Three tickets share each timestamp.
	for id := int64(1); id <= 12; id++ {
		owner := "u1"
		if id%2 == 0 {
			owner = "u2"
		}
		createdAt := base.Add(time.Duration((id-1)/3) * time.Minute)
		require.NoError(t, repo.Create(ctx, newTestTicket(id, owner, createdAt)))
	}

	all := collectAll(t, repo, "", 5)
	assert.Equal(t, []int64{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, all)

	mine := collectAll(t, repo, "u1", 2)
	assert.Equal(t, []int64{11, 9, 7, 5, 3, 1}, mine)
}

func TestMemoryTicketRepositorySubMicrosecondTimestamps(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestTicket(1, "u1", base.Add(1500*time.Nanosecond))))
	require.NoError(t, repo.Create(ctx, newTestTicket(2, "u1", base.Add(1000*time.Nanosecond))))

	assert.Equal(t, []int64{2, 1}, collectAll(t, repo, "u1", 1))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Microsecond), got.CreatedAt)
}

func TestMemoryTicketRepositoryExactPageHasNoCursor(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	now := time.Now().UTC()
	for id := int64(1); id <= 3; id++ {
		require.NoError(t, repo.Create(ctx, newTestTicket(id, "u1", now.Add(time.Duration(id)*time.Second))))
	}

	page, err := repo.ListByRecency(ctx, ListQuery{UserID: "u1", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Nil(t, page.NextCursor)

	empty, err := repo.ListByRecency(ctx, ListQuery{UserID: "nobody", Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Nil(t, empty.NextCursor)
}

func TestMemoryTicketRepositoryCursorScope(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	now := time.Now().UTC()
	for id := int64(1); id <= 4; id++ {
		require.NoError(t, repo.Create(ctx, newTestTicket(id, "u1", now.Add(time.Duration(id)*time.Second))))
	}

	page, err := repo.ListByRecency(ctx, ListQuery{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	require.NotNil(t, page.NextCursor)

	_, err = repo.ListByRecency(ctx, ListQuery{UserID: "u2", Limit: 2, Cursor: *page.NextCursor})
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestMemoryTicketRepositoryUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	require.NoError(t, repo.Create(ctx, newTestTicket(1, "u1", time.Now().UTC())))

	require.NoError(t, repo.UpdateStatus(ctx, 1, domain.TicketStatusNew, domain.TicketStatusOpen))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 1, domain.TicketStatusNew, domain.TicketStatusClosed), ErrStatusConflict)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 9, domain.TicketStatusNew, domain.TicketStatusOpen), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 1, domain.TicketStatusOpen, "Pending"), ErrInvalidTicket)

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, got.Status)
}

func TestMemoryTicketRepositoryAttachReply(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	require.NoError(t, repo.Create(ctx, newTestTicket(1, "u1", time.Now().UTC())))

	assert.ErrorIs(t, repo.AttachReply(ctx, 1, "  ", "l1", time.Now()), ErrInvalidTicket)
	assert.ErrorIs(t, repo.AttachReply(ctx, 2, "answer", "l1", time.Now()), ErrNotFound)

	at := time.Now().UTC()
	require.NoError(t, repo.AttachReply(ctx, 1, "answer", "l1", at))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.True(t, got.HasReply())
	assert.Equal(t, "answer", *got.Reply)
	assert.Equal(t, "l1", *got.LawyerID)
	assert.True(t, got.RespondedAt.Equal(at))
	assert.Equal(t, domain.TicketStatusNew, got.Status)
}
