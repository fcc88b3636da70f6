package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// ErrInvalidCursor is returned for continuation tokens that cannot be decoded
// or that were issued for another listing scope.
var ErrInvalidCursor = errors.New("invalid cursor")

// cursorKey is the position of the last item of a page in
// (created_at DESC, ticket_id DESC) order.
type cursorKey struct {
	CreatedAtMicros int64  `cbor:"1,keyasint"`
	TicketID        int64  `cbor:"2,keyasint"`
	Scope           string `cbor:"3,keyasint,omitempty"`
}

var (
	cursorEnc cbor.EncMode
	cursorDec cbor.DecMode
)

func init() {
	var err error
	cursorEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("repository: cursor encoder initialization failed: " + err.Error())
	}
	cursorDec, err = cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		panic("repository: cursor decoder initialization failed: " + err.Error())
	}
}

func encodeCursor(t *domain.Ticket, scope string) (string, error) {
	raw, err := cursorEnc.Marshal(cursorKey{
		CreatedAtMicros: t.CreatedAt.UnixMicro(),
		TicketID:        t.ID,
		Scope:           scope,
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(token, scope string) (cursorKey, error) {
	var key cursorKey
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return key, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if err := cursorDec.Unmarshal(raw, &key); err != nil {
		return key, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if key.TicketID <= 0 || key.Scope != scope {
		return key, ErrInvalidCursor
	}
	return key, nil
}

func (k cursorKey) createdAt() time.Time {
	return time.UnixMicro(k.CreatedAtMicros).UTC()
}

// after reports whether t sorts strictly after the cursor position.
func (k cursorKey) after(t *domain.Ticket) bool {
	micros := t.CreatedAt.UnixMicro()
	if micros != k.CreatedAtMicros {
		return micros < k.CreatedAtMicros
	}
	return t.ID < k.TicketID
}
