package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultTTL      = 30 * 24 * time.Hour

	defaultScanRounds     = 10
	defaultSubscribeLimit = 500
	scanBatchSize         = 200
)

var ErrInvalidNotification = errors.New("invalid notification")

type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.Backoff << attempt
}

type NotificationService struct {
	store          Store
	now            func() time.Time
	retry          RetryPolicy
	scanRounds     int
	subscribeLimit int
}

type Option func(*NotificationService)

func WithClock(now func() time.Time) Option {
	return func(s *NotificationService) { s.now = now }
}

func WithRetry(policy RetryPolicy) Option {
	return func(s *NotificationService) { s.retry = policy }
}

// WithScanRounds bounds how many raw batches one page request may read while
// looking for relevant documents.
func WithScanRounds(n int) Option {
	return func(s *NotificationService) { s.scanRounds = n }
}

func WithSubscribeLimit(n int) Option {
	return func(s *NotificationService) { s.subscribeLimit = n }
}

func NewNotificationService(store Store, opts ...Option) *NotificationService {
	s := &NotificationService{
		store:          store,
		now:            time.Now,
		retry:          RetryPolicy{Attempts: 3, Backoff: 200 * time.Millisecond},
		scanRounds:     defaultScanRounds,
		subscribeLimit: defaultSubscribeLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.Attempts < 1 {
		s.retry.Attempts = 1
	}
	if s.scanRounds < 1 {
		s.scanRounds = 1
	}
	return s
}

func (s *NotificationService) SendNotification(ctx context.Context, req *NotificationRequest) (*Notification, error) {
	if req == nil || strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidNotification)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, req.Type)
	}

	ttl := DefaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	now := s.now().UTC()
	notification := &Notification{
		ID:               uuid.New().String(),
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Type:             req.Type,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.Add(ttl),
		TargetRoles:      compact(req.TargetRoles),
		TargetBranch:     strings.TrimSpace(req.TargetBranch),
		TargetDepartment: strings.TrimSpace(req.TargetDepartment),
		TargetUserIDs:    compact(req.TargetUserIDs),
		ProvinceID:       strings.TrimSpace(req.ProvinceID),
		Link:             req.Link,
		ImageURL:         req.ImageURL,
		ReadBy:           []string{},
	}

	if err := s.store.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to send notification: %w", err)
	}

	slog.Info("notification created",
		"id", notification.ID,
		"type", notification.Type,
		"province_id", notification.ProvinceID,
		"target_roles", notification.TargetRoles)
	return notification, nil
}

// FetchPage returns up to pageSize notifications relevant to user, newest
// expiry first. Store failures are logged and produce an empty page.
func (s *NotificationService) FetchPage(ctx context.Context, user *UserProfile, pageSize int, cursor string) Page {
	empty := Page{Items: []View{}}
	if user == nil {
		return empty
	}
	pageSize = clampPageSize(pageSize)

	after, err := DecodeCursor(cursor)
	if err != nil {
		slog.Warn("ignoring notification page request", "uid", user.UID, "error", err)
		return empty
	}

	now := s.now()
	page := Page{Items: make([]View, 0, pageSize), Cursor: cursor}
	for round := 0; round < s.scanRounds; round++ {
		docs, err := s.list(ctx, ListQuery{Now: now, Limit: pageSize + 1, After: after})
		if err != nil {
			slog.Error("failed to fetch notifications", "uid", user.UID, "error", err)
			return empty
		}

		for _, doc := range docs {
			if len(page.Items) == pageSize {
				page.HasMore = true
				return page
			}
			c := CursorFor(doc)
			after = &c
			page.Cursor = c.Encode()
			if !doc.ExpiredAt(now) && IsRelevant(doc, user) {
				page.Items = append(page.Items, NewView(doc, user.UID))
			}
		}

		if len(docs) <= pageSize {
			return page
		}
	}

	// Scan budget spent on full batches; only report more if a raw document
	// actually follows the last one consumed.
	next, err := s.list(ctx, ListQuery{Now: now, Limit: 1, After: after})
	if err != nil {
		slog.Error("failed to fetch notifications", "uid", user.UID, "error", err)
		return empty
	}
	page.HasMore = len(next) > 0
	return page
}

func (s *NotificationService) MarkAsRead(ctx context.Context, user *UserProfile, id string) error {
	if err := s.authorize(ctx, user, id); err != nil {
		return err
	}
	if err := s.store.AddReader(ctx, id, user.UID); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

func (s *NotificationService) MarkAsUnread(ctx context.Context, user *UserProfile, id string) error {
	if err := s.authorize(ctx, user, id); err != nil {
		return err
	}
	if err := s.store.RemoveReader(ctx, id, user.UID); err != nil {
		return fmt.Errorf("failed to mark notification as unread: %w", err)
	}
	return nil
}

// MarkAllAsRead marks every live notification relevant to user as read and
// returns how many changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, user *UserProfile) (int, error) {
	if user == nil {
		return 0, ErrNotFound
	}

	var unread []string
	err := s.scan(ctx, user, func(doc *Notification) {
		if !doc.IsReadBy(user.UID) {
			unread = append(unread, doc.ID)
		}
	})
	if err != nil {
		return 0, err
	}

	if err := s.store.AddReaders(ctx, unread, user.UID); err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return len(unread), nil
}

func (s *NotificationService) GetNotificationStats(ctx context.Context, user *UserProfile) (*NotificationStats, error) {
	stats := &NotificationStats{}
	if user == nil {
		return stats, nil
	}
	err := s.scan(ctx, user, func(doc *Notification) {
		stats.Total++
		if !doc.IsReadBy(user.UID) {
			stats.Unread++
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error occurred fetching notification stats: %w", err)
	}
	return stats, nil
}

// scan walks every live document relevant to user.
func (s *NotificationService) scan(ctx context.Context, user *UserProfile, visit func(*Notification)) error {
	now := s.now()
	var after *Cursor
	for {
		docs, err := s.list(ctx, ListQuery{Now: now, Limit: scanBatchSize, After: after})
		if err != nil {
			return err
		}
		for _, doc := range FilterRelevant(docs, user, now) {
			visit(doc)
		}
		if len(docs) < scanBatchSize {
			return nil
		}
		c := CursorFor(docs[len(docs)-1])
		after = &c
	}
}

func (s *NotificationService) authorize(ctx context.Context, user *UserProfile, id string) error {
	if user == nil || id == "" {
		return ErrNotFound
	}
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.ExpiredAt(s.now()) || !IsRelevant(doc, user) {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) list(ctx context.Context, q ListQuery) ([]*Notification, error) {
	var err error
	for attempt := 0; attempt < s.retry.Attempts; attempt++ {
		var docs []*Notification
		docs, err = s.store.List(ctx, q)
		if err == nil {
			return docs, nil
		}
		if !isTransient(err) || attempt == s.retry.Attempts-1 {
			break
		}
		slog.Warn("retrying notification query", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retry.delay(attempt)):
		}
	}
	return nil, err
}

func (s *NotificationService) views(docs []*Notification, user *UserProfile) []View {
	relevant := FilterRelevant(docs, user, s.now())
	views := make([]View, 0, len(relevant))
	for _, doc := range relevant {
		views = append(views, NewView(doc, user.UID))
	}
	return views
}

// isTransient reports store errors worth retrying.
func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
