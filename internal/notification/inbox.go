package notification

import (
	"context"
	"sync"
	"time"
)

type PageFetcher interface {
	FetchPage(ctx context.Context, user *UserProfile, pageSize int, cursor string) Page
}

type InboxState struct {
	Items       []View `json:"items"`
	UnreadCount int    `json:"unread_count"`
	HasMore     bool   `json:"has_more"`
}

// Inbox owns one user's notification list and unread count. All changes go
// through Merge.
type Inbox struct {
	fetcher  PageFetcher
	user     *UserProfile
	pageSize int
	requests RequestSequence

	mu      sync.Mutex
	items   []View
	unread  int
	cursor  string
	hasMore bool
}

func NewInbox(fetcher PageFetcher, user *UserProfile, pageSize int) *Inbox {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Inbox{
		fetcher:  fetcher,
		user:     user,
		pageSize: pageSize,
	}
}

// Refresh loads the first page. It reports false when a newer request
// superseded this one and the response was dropped.
func (b *Inbox) Refresh(ctx context.Context) bool {
	return b.load(ctx, "", true)
}

// LoadMore loads the page after the last one applied.
func (b *Inbox) LoadMore(ctx context.Context) bool {
	b.mu.Lock()
	cursor, hasMore := b.cursor, b.hasMore
	b.mu.Unlock()
	if !hasMore {
		return false
	}
	return b.load(ctx, cursor, false)
}

func (b *Inbox) load(ctx context.Context, cursor string, first bool) bool {
	token := b.requests.Next()
	page := b.fetcher.FetchPage(ctx, b.user, b.pageSize, cursor)
	if !b.requests.IsLatest(token) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.requests.IsLatest(token) {
		return false
	}
	b.applyLocked(page.Items)
	if first || page.Cursor != "" {
		b.cursor = page.Cursor
	}
	b.hasMore = page.HasMore
	return true
}

// Apply merges a batch, typically a subscription delivery, and returns the
// resulting unread count.
func (b *Inbox) Apply(views []View) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applyLocked(views)
	return b.unread
}

func (b *Inbox) applyLocked(views []View) {
	merged, delta := Merge(b.items, views)
	b.items = merged
	b.unread = max(b.unread+delta, 0)
}

// Prune drops items that expired before at and recounts unread.
func (b *Inbox) Prune(at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.items[:0]
	for _, v := range b.items {
		if v.ExpiresAt.IsZero() || v.ExpiresAt.After(at) {
			kept = append(kept, v)
		}
	}
	b.items = kept
	b.unread = countUnread(kept)
}

func (b *Inbox) State() InboxState {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]View, len(b.items))
	copy(items, b.items)
	return InboxState{
		Items:       items,
		UnreadCount: b.unread,
		HasMore:     b.hasMore,
	}
}
