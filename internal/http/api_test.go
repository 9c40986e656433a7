package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

type fakeNotificationRepo struct {
	notifications []domain.Notification
	lastLimit     int
	marked        []int64
}

func (f *fakeNotificationRepo) Init(context.Context) error { return nil }

func (f *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) (int64, error) {
	n.ID = int64(len(f.notifications) + 1)
	f.notifications = append(f.notifications, *n)
	return n.ID, nil
}

func (f *fakeNotificationRepo) ListRecent(_ context.Context, userID int64, limit int) ([]domain.Notification, error) {
	f.lastLimit = limit
	var out []domain.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id int64) error {
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeNotificationRepo) CountUnread(context.Context, int64) (int64, error) {
	return int64(len(f.notifications)), nil
}

type apiFixture struct {
	handler       *Handler
	router        *gin.Engine
	notifications *fakeNotificationRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	notifications := &fakeNotificationRepo{}
	handler := NewHandler(Config{
		Notifications: notifications,
		Logger:        logger,
		JWTSecret:     "test-secret",
		TokenTTL:      time.Minute,
	})

	router := gin.New()
	handler.RegisterRoutes(router)
	return &apiFixture{handler: handler, router: router, notifications: notifications}
}

func (f *apiFixture) request(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware_MissingTokenRejected(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/notifications", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_GarbageTokenRejected(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/notifications", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_WrongSecretRejected(t *testing.T) {
	f := newAPIFixture(t)

	other := NewHandler(Config{JWTSecret: "different-secret", TokenTTL: time.Minute})
	token, err := other.issueToken(7)
	require.NoError(t, err)

	rec := f.request(t, http.MethodGet, "/api/notifications", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_TokenViaQueryParam(t *testing.T) {
	f := newAPIFixture(t)

	token, err := f.handler.issueToken(7)
	require.NoError(t, err)

	rec := f.request(t, http.MethodGet, "/api/notifications?token="+token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListNotifications_ScopedToAuthenticatedUser(t *testing.T) {
	f := newAPIFixture(t)
	_, _ = f.notifications.Create(context.Background(), &domain.Notification{
		UserID: 7, Type: domain.NotificationComment, Message: "for seven",
	})
	_, _ = f.notifications.Create(context.Background(), &domain.Notification{
		UserID: 8, Type: domain.NotificationAssignment, Message: "for eight",
	})

	token, err := f.handler.issueToken(7)
	require.NoError(t, err)

	rec := f.request(t, http.MethodGet, "/api/notifications", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "for seven", resp[0].Message)
	assert.Equal(t, defaultNotificationLimit, f.notifications.lastLimit)
}

func TestListNotifications_LimitQueryBounded(t *testing.T) {
	f := newAPIFixture(t)
	token, err := f.handler.issueToken(7)
	require.NoError(t, err)

	rec := f.request(t, http.MethodGet, "/api/notifications?limit=5", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.notifications.lastLimit)

	// Out-of-range values fall back to the default rather than erroring.
	rec = f.request(t, http.MethodGet, "/api/notifications?limit=500", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultNotificationLimit, f.notifications.lastLimit)
}

func TestMarkNotificationRead(t *testing.T) {
	f := newAPIFixture(t)
	token, err := f.handler.issueToken(7)
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, "/api/notifications/12/read", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{12}, f.notifications.marked)
}

func TestMarkNotificationRead_BadIDRejected(t *testing.T) {
	f := newAPIFixture(t)
	token, err := f.handler.issueToken(7)
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, "/api/notifications/abc/read", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.notifications.marked)
}
