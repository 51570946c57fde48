package notification

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidCursor = errors.New("invalid notification cursor")

// Cursor is the sort key of the last document a page consumed. Times are
// kept in nanoseconds so Firestore's microsecond timestamps survive.
type Cursor struct {
	ExpiresAt int64  `json:"e"`
	CreatedAt int64  `json:"c"`
	ID        string `json:"i"`
}

func CursorFor(n *Notification) Cursor {
	return Cursor{
		ExpiresAt: n.ExpiresAt.UnixNano(),
		CreatedAt: n.CreatedAt.UnixNano(),
		ID:        n.ID,
	}
}

func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func (c Cursor) ExpiresTime() time.Time { return time.Unix(0, c.ExpiresAt).UTC() }
func (c Cursor) CreatedTime() time.Time { return time.Unix(0, c.CreatedAt).UTC() }

// DecodeCursor returns nil for the empty cursor.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// before reports whether a sorts ahead of b in feed order: expires_at desc,
// created_at desc, id desc.
func (c Cursor) before(b Cursor) bool {
	if c.ExpiresAt != b.ExpiresAt {
		return c.ExpiresAt > b.ExpiresAt
	}
	if c.CreatedAt != b.CreatedAt {
		return c.CreatedAt > b.CreatedAt
	}
	return c.ID > b.ID
}
