package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cineverse/cineverse/backend/go-services/internal/models"
	"github.com/cineverse/cineverse/backend/go-services/internal/users"
	"github.com/cineverse/cineverse/backend/go-services/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "whsec_aGFuZGxlci10ZXN0LWtleS0wMTIzNDU2Nzg5"

// countingRepo records store traffic so tests can assert that rejected
// deliveries never reach the store.
type countingRepo struct {
	inner *users.MemoryRepository
	calls int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{inner: users.NewMemoryRepository()}
}

func (r *countingRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.calls++
	return r.inner.Create(ctx, u)
}
func (r *countingRepo) FindBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	r.calls++
	return r.inner.FindBySubject(ctx, subjectID)
}
func (r *countingRepo) UpdateBySubject(ctx context.Context, subjectID string, p *models.Patch) (*models.User, error) {
	r.calls++
	return r.inner.UpdateBySubject(ctx, subjectID, p)
}
func (r *countingRepo) DeleteBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	r.calls++
	return r.inner.DeleteBySubject(ctx, subjectID)
}

func newWebhookRouter(t *testing.T, repo users.Repository) (*gin.Engine, *webhook.Verifier) {
	t.Helper()
	v, err := webhook.NewVerifier(testSigningSecret, 5*time.Minute)
	require.NoError(t, err)

	h := NewWebhookHandler(v, webhook.NewSynchronizer(repo, nil, nil))
	r := gin.New()
	h.Register(r.Group("/"))
	return r, v
}

// deliver signs body the way the provider would and posts it.
func deliver(r *gin.Engine, v *webhook.Verifier, body string) *httptest.ResponseRecorder {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest("POST", "/api/webhooks/clerk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("svix-id", "msg_test")
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", v.Sign([]byte(body), "msg_test", ts))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookMissingHeaders(t *testing.T) {
	repo := newCountingRepo()
	r, _ := newWebhookRouter(t, repo)

	body := `{"type":"user.created","data":{"id":"user_1","username":"alice"}}`
	req := httptest.NewRequest("POST", "/api/webhooks/clerk", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, repo.calls, "store must not be touched before verification")
}

func TestWebhookBadSignature(t *testing.T) {
	repo := newCountingRepo()
	r, _ := newWebhookRouter(t, repo)

	body := `{"type":"user.created","data":{"id":"user_1","username":"alice"}}`
	req := httptest.NewRequest("POST", "/api/webhooks/clerk", strings.NewReader(body))
	req.Header.Set("svix-id", "msg_test")
	req.Header.Set("svix-timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	req.Header.Set("svix-signature", "v1,Zm9yZ2VkLXNpZ25hdHVyZQ==")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, repo.calls)
}

func TestWebhookUserCreated(t *testing.T) {
	repo := newCountingRepo()
	r, v := newWebhookRouter(t, repo)

	body := `{"type":"user.created","data":{"id":"user_1","username":"alice","image_url":"","email_addresses":[{"email_address":"alice@example.com"}]}}`
	w := deliver(r, v, body)

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "OK", got.Message)
	assert.Equal(t, "user_1", got.User.SubjectID)
	assert.NotEmpty(t, got.User.ID)

	stored, err := repo.inner.FindBySubject(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
}

func TestWebhookUserCreatedReplay(t *testing.T) {
	repo := newCountingRepo()
	r, v := newWebhookRouter(t, repo)

	body := `{"type":"user.created","data":{"id":"user_1","username":"alice"}}`
	w1 := deliver(r, v, body)
	require.Equal(t, http.StatusOK, w1.Code)
	w2 := deliver(r, v, body)
	require.Equal(t, http.StatusOK, w2.Code)

	var first, second struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w1.Body.Bytes(), &first))
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &second))
	assert.Equal(t, first.User.ID, second.User.ID, "replay returns the original internal id")
}

func TestWebhookUserUpdated(t *testing.T) {
	repo := newCountingRepo()
	r, v := newWebhookRouter(t, repo)

	deliver(r, v, `{"type":"user.created","data":{"id":"user_1","username":"alice"}}`)
	w := deliver(r, v, `{"type":"user.updated","data":{"id":"user_1","username":"bob"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	stored, err := repo.inner.FindBySubject(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "bob", stored.Username)
}

func TestWebhookUserUpdatedUnknownSubject(t *testing.T) {
	repo := newCountingRepo()
	r, v := newWebhookRouter(t, repo)

	w := deliver(r, v, `{"type":"user.updated","data":{"id":"user_ghost","username":"ghost"}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to update user")
}

func TestWebhookUserDeleted(t *testing.T) {
	repo := newCountingRepo()
	r, v := newWebhookRouter(t, repo)

	deliver(r, v, `{"type":"user.created","data":{"id":"user_1","username":"alice"}}`)
	w := deliver(r, v, `{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := repo.inner.FindBySubject(context.Background(), "user_1")
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestWebhookUserDeletedUnknownSubject(t *testing.T) {
	repo := newCountingRepo()
	r, v := newWebhookRouter(t, repo)

	w := deliver(r, v, `{"type":"user.deleted","data":{"id":"user_ghost","deleted":true}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to delete user")
}

func TestWebhookUnknownEventType(t *testing.T) {
	repo := newCountingRepo()
	r, v := newWebhookRouter(t, repo)

	w := deliver(r, v, `{"type":"session.created","data":{"id":"sess_1","user_id":"user_1"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OK")
	assert.Equal(t, 0, repo.calls, "unrecognized events never touch the store")
}

func TestWebhookMissingUsername(t *testing.T) {
	repo := newCountingRepo()
	r, v := newWebhookRouter(t, repo)

	w := deliver(r, v, `{"type":"user.created","data":{"id":"user_1"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, repo.calls)
}