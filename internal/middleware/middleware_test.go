package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/auth"
	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/session"
)

type stubLoader struct {
	users    map[uuid.UUID]*models.User
	profiles map[uuid.UUID]*models.Profile
}

func (s *stubLoader) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (s *stubLoader) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, models.ErrNotFound
}

func init() { gin.SetMode(gin.TestMode) }

func newAuthRouter(loader *stubLoader, jwt *auth.JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{Auth(jwt, loader, zap.NewNop())}, extra...)
	chain = append(chain, func(c *gin.Context) {
		c.String(http.StatusOK, string(session.From(c).Role()))
	})
	r.GET("/x", chain...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	jwt := auth.NewJWTService("k", 1)
	user := &models.User{ID: uuid.New()}
	loader := &stubLoader{users: map[uuid.UUID]*models.User{user.ID: user}}
	r := newAuthRouter(loader, jwt)

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)

	token, err := jwt.Generate(user.ID, "a@b.co")
	require.NoError(t, err)
	w := get(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user", w.Body.String())

	ghost, err := jwt.Generate(uuid.New(), "ghost@b.co")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, ghost).Code)
}

func TestRequireAdminAndProfile(t *testing.T) {
	jwt := auth.NewJWTService("k", 1)
	admin := &models.User{ID: uuid.New()}
	plain := &models.User{ID: uuid.New()}
	loader := &stubLoader{
		users: map[uuid.UUID]*models.User{admin.ID: admin, plain.ID: plain},
		profiles: map[uuid.UUID]*models.Profile{
			admin.ID: models.AdminProfile(admin.ID),
		},
	}
	adminToken, _ := jwt.Generate(admin.ID, "admin@b.co")
	plainToken, _ := jwt.Generate(plain.ID, "plain@b.co")

	admins := newAuthRouter(loader, jwt, RequireAdmin())
	assert.Equal(t, http.StatusOK, get(admins, adminToken).Code)
	assert.Equal(t, http.StatusForbidden, get(admins, plainToken).Code)

	profiled := newAuthRouter(loader, jwt, RequireProfile())
	assert.Equal(t, http.StatusOK, get(profiled, adminToken).Code)
	assert.Equal(t, http.StatusForbidden, get(profiled, plainToken).Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://app.test"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTimeoutAndLogger(t *testing.T) {
	r := gin.New()
	r.Use(Logger(zap.NewNop()), Timeout(50*time.Millisecond))
	var deadline bool
	r.GET("/x", func(c *gin.Context) {
		_, deadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, deadline)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}
