package handlers_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventoryHub/internal/auth"
	"inventoryHub/internal/cache"
	"inventoryHub/internal/db"
	"inventoryHub/internal/handlers"
	"inventoryHub/internal/notification"
	"inventoryHub/internal/queue"
	"inventoryHub/internal/routes"
	"inventoryHub/internal/security"
)

type userDirectory struct {
	mu    sync.Mutex
	users map[string]*db.User
}

func newUserDirectory() *userDirectory {
	return &userDirectory{users: make(map[string]*db.User)}
}

func (d *userDirectory) add(u *db.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *userDirectory) CreateUser(ctx context.Context, user *db.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return db.ErrEmailTaken
		}
	}
	d.users[user.ID] = user
	return nil
}

func (d *userDirectory) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, db.ErrUserNotFound
}

func (d *userDirectory) UpdateScope(ctx context.Context, uid string, update db.ScopeUpdate) (*db.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[uid]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	u.Role = update.Role
	u.Branch = update.Branch
	u.Department = update.Department
	u.Province = update.Province
	u.AccessibleProvinceIDs = update.AccessibleProvinceIDs
	return u, nil
}

func (d *userDirectory) GetProfile(ctx context.Context, uid string) (*notification.UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[uid]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return u.Profile(), nil
}

type registrationQueue struct {
	mu       sync.Mutex
	payloads []queue.UserRegistrationPayload
}

func (q *registrationQueue) EnqueueUserRegistration(p queue.UserRegistrationPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, p)
	return "task", nil
}

type testAPI struct {
	e      *echo.Echo
	store  *notification.MemoryStore
	svc    *notification.NotificationService
	users  *userDirectory
	queue  *registrationQueue
	tokens *auth.TokenIssuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := notification.NewMemoryStore()
	svc := notification.NewNotificationService(store)
	users := newUserDirectory()
	q := &registrationQueue{}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })
	profiles := cache.NewProfileCache(redisClient, users, time.Hour)

	h := handlers.New(handlers.Deps{
		Notifications: svc,
		Profiles:      profiles,
		Users:         users,
		Tokens:        tokens,
		Registrations: q,
		PageSize:      10,
	})

	e := echo.New()
	routes.SetupRoutes(e.Group("/api"), h, routes.NewMiddlewares(
		tokens,
		auth.NewRateLimiter(1000),
		security.NewIPRateLimiter(1000, 1000),
	))

	users.add(&db.User{ID: "admin", Email: "admin@inventory.la", Role: notification.RoleSuperAdmin})
	users.add(&db.User{ID: "staff", Email: "staff@inventory.la", Role: notification.RoleUser, Province: "P1"})

	return &testAPI{e: e, store: store, svc: svc, users: users, queue: q, tokens: tokens}
}

func (a *testAPI) token(t *testing.T, uid string) string {
	t.Helper()
	token, err := a.tokens.GenerateToken(uid, uid+"@inventory.la")
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path, uid, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if uid != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token(t, uid))
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) send(t *testing.T, req *notification.NotificationRequest) *notification.Notification {
	t.Helper()
	n, err := a.svc.SendNotification(context.Background(), req)
	require.NoError(t, err)
	return n
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupEnqueuesRegistration(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/signup", "",
		`{"email":"New.User@inventory.la","password":"Str0ng!pass","province":"P1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created db.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "new.user@inventory.la", created.Email)
	assert.Equal(t, notification.RoleUser, created.Role)
	assert.NotContains(t, rec.Body.String(), "Str0ng")

	require.Len(t, api.queue.payloads, 1)
	assert.Equal(t, created.ID, api.queue.payloads[0].UID)
	assert.Equal(t, "P1", api.queue.payloads[0].ProvinceID)

	rec = api.do(t, http.MethodPost, "/api/auth/signup", "",
		`{"email":"new.user@inventory.la","password":"Str0ng!pass"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"nope","password":"Str0ng!pass"}`},
		{"weak password", `{"email":"a@inventory.la","password":"weak"}`},
		{"malformed", `{"email":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, api.queue.payloads)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/auth/signup", "",
		`{"email":"login@inventory.la","password":"Str0ng!pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"login@inventory.la","password":"Str0ng!pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	uid, err := api.tokens.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, uid)

	rec = api.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"login@inventory.la","password":"Wr0ng!pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationsRequireToken(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/notifications", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/notifications", "ghost", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListNotificationsPaginates(t *testing.T) {
	api := newTestAPI(t)
	for i := 0; i < 3; i++ {
		api.send(t, &notification.NotificationRequest{Title: "broadcast", Type: notification.TypeInfo})
	}
	api.send(t, &notification.NotificationRequest{Title: "other province", Type: notification.TypeInfo, ProvinceID: "P2"})

	rec := api.do(t, http.MethodGet, "/api/notifications?page_size=2", "staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page notification.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	rec = api.do(t, http.MethodGet, "/api/notifications?page_size=2&cursor="+page.Cursor, "staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var next notification.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	assert.Len(t, next.Items, 1)
	assert.False(t, next.HasMore)
	assert.NotContains(t, rec.Body.String(), "read_by")
}

func TestListNotificationsRejectsBadParams(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/notifications?page_size=zero", "staff", "").Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/notifications?cursor=not-a-cursor", "staff", "").Code)
}

func TestCreateNotificationRequiresPublisherRole(t *testing.T) {
	api := newTestAPI(t)
	body := `{"title":"Stock count","type":"warning","target_roles":["user"]}`

	rec := api.do(t, http.MethodPost, "/api/notifications", "staff", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/notifications", "admin", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view notification.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Stock count", view.Title)
	assert.WithinDuration(t, time.Now().Add(notification.DefaultTTL), view.ExpiresAt, time.Minute)

	rec = api.do(t, http.MethodPost, "/api/notifications", "admin", `{"title":"x","type":"urgent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadStateEndpoints(t *testing.T) {
	api := newTestAPI(t)
	n := api.send(t, &notification.NotificationRequest{Title: "hello", Type: notification.TypeInfo})
	hidden := api.send(t, &notification.NotificationRequest{Title: "admins", Type: notification.TypeInfo, TargetRoles: []string{"super_admin"}})

	rec := api.do(t, http.MethodPost, "/api/notifications/"+n.ID+"/read", "staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodPost, "/api/notifications/"+n.ID+"/read", "staff", "")
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := api.store.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"staff"}, doc.ReadBy)

	rec = api.do(t, http.MethodDelete, "/api/notifications/"+n.ID+"/read", "staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc, err = api.store.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Empty(t, doc.ReadBy)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/api/notifications/"+hidden.ID+"/read", "staff", "").Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/api/notifications/missing/read", "staff", "").Code)
}

func TestMarkAllAsReadAndStats(t *testing.T) {
	api := newTestAPI(t)
	api.send(t, &notification.NotificationRequest{Title: "one", Type: notification.TypeInfo})
	api.send(t, &notification.NotificationRequest{Title: "two", Type: notification.TypeSuccess})

	var stats notification.NotificationStats
	rec := api.do(t, http.MethodGet, "/api/notifications/stats", "staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, notification.NotificationStats{Total: 2, Unread: 2}, stats)

	rec = api.do(t, http.MethodPost, "/api/notifications/read-all", "staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/notifications/stats", "staff", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, notification.NotificationStats{Total: 2, Unread: 0}, stats)
}

func readInboxEvent(t *testing.T, lines *bufio.Scanner) notification.InboxState {
	t.Helper()
	for lines.Scan() {
		data, ok := strings.CutPrefix(lines.Text(), "data: ")
		if !ok {
			continue
		}
		var state notification.InboxState
		require.NoError(t, json.Unmarshal([]byte(data), &state))
		return state
	}
	t.Fatalf("stream ended: %v", lines.Err())
	return notification.InboxState{}
}

func TestStreamNotifications(t *testing.T) {
	api := newTestAPI(t)
	api.send(t, &notification.NotificationRequest{Title: "first", Type: notification.TypeInfo})

	srv := httptest.NewServer(api.e)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/notifications/stream?access_token="+api.token(t, "staff"), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	lines := bufio.NewScanner(resp.Body)
	state := readInboxEvent(t, lines)
	require.Len(t, state.Items, 1)
	assert.Equal(t, 1, state.UnreadCount)

	require.Eventually(t, func() bool { return api.store.Watchers() == 1 }, time.Second, 10*time.Millisecond)
	api.send(t, &notification.NotificationRequest{Title: "second", Type: notification.TypeInfo})

	for state.UnreadCount != 2 {
		state = readInboxEvent(t, lines)
	}
	require.Len(t, state.Items, 2)
	assert.Equal(t, "second", state.Items[0].Title)

	cancel()
	assert.Eventually(t, func() bool { return api.store.Watchers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestUpdateUserScopeRefreshesRelevance(t *testing.T) {
	api := newTestAPI(t)
	api.send(t, &notification.NotificationRequest{Title: "P2 stock count", Type: notification.TypeInfo, ProvinceID: "P2"})

	var page notification.Page
	rec := api.do(t, http.MethodGet, "/api/notifications", "staff", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Items)

	body := `{"role":"branch_manager","province":"P2"}`
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPatch, "/api/users/staff/scope", "staff", body).Code)

	rec = api.do(t, http.MethodPatch, "/api/users/staff/scope", "admin", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/notifications", "staff", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "P2 stock count", page.Items[0].Title)
}

func TestUpdateUserScopeValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPatch, "/api/users/staff/scope", "admin", `{"role":"emperor"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, "/api/users/missing/scope", "admin", `{"role":"user"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
