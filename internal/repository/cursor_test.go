package repository

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/legal-intake/internal/domain"
)

func TestCursorRoundTripKeepsPosition(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 0, 123456000, time.UTC)
	ticket := &domain.Ticket{ID: 42, CreatedAt: created}

	token, err := encodeCursor(ticket, "u1")
	require.NoError(t, err)

	key, err := decodeCursor(token, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), key.TicketID)
	assert.True(t, key.createdAt().Equal(created))
}

func TestCursorRejectsOtherScope(t *testing.T) {
	token, err := encodeCursor(&domain.Ticket{ID: 7, CreatedAt: time.Now()}, "u1")
	require.NoError(t, err)

	_, err = decodeCursor(token, "u2")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = decodeCursor(token, "")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte("not cbor")),
		base64.RawURLEncoding.EncodeToString([]byte{0xa0}),
	} {
		_, err := decodeCursor(token, "")
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}

func TestCursorAfterBreaksTiesByID(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	key := cursorKey{CreatedAtMicros: at.UnixMicro(), TicketID: 10}

	assert.True(t, key.after(&domain.Ticket{ID: 9, CreatedAt: at}))
	assert.False(t, key.after(&domain.Ticket{ID: 10, CreatedAt: at}))
	assert.False(t, key.after(&domain.Ticket{ID: 11, CreatedAt: at}))
	assert.True(t, key.after(&domain.Ticket{ID: 99, CreatedAt: at.Add(-time.Microsecond)}))
	assert.False(t, key.after(&domain.Ticket{ID: 1, CreatedAt: at.Add(time.Microsecond)}))
}
