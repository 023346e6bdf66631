package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/pkg/response"
	"github.com/ultron-ftp/backend/pkg/utils"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[string]*models.User)} }

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, email, hash, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := m.users[key]; ok {
		return nil, ErrEmailTaken
	}
	u := &models.User{ID: uuid.New(), Email: key, Password: hash, DisplayName: name, CreatedAt: time.Now().UTC()}
	m.users[key] = u
	return u, nil
}

type memProfiles struct {
	profiles map[uuid.UUID]*models.Profile
}

func (m *memProfiles) Get(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *models.Profile) error {
	if m.profiles == nil {
		m.profiles = make(map[uuid.UUID]*models.Profile)
	}
	m.profiles[p.UserID] = p
	return nil
}

type countingLimiter struct {
	max      int
	failures map[string]int
}

func (l *countingLimiter) Blocked(_ context.Context, email string) (bool, error) {
	return l.failures[email] >= l.max, nil
}

func (l *countingLimiter) Fail(_ context.Context, email string) error {
	if l.failures == nil {
		l.failures = make(map[string]int)
	}
	l.failures[email]++
	return nil
}

func (l *countingLimiter) Reset(_ context.Context, email string) error {
	delete(l.failures, email)
	return nil
}

func setupRouter(t *testing.T, users *memUsers, limiter Limiter) (*gin.Engine, *JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt := NewJWTService("test-secret", 1)
	h := NewHandler(users, &memProfiles{}, jwt, limiter, zap.NewNop())
	r := gin.New()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	return r, jwt
}

func doJSON(t *testing.T, r http.Handler, path string, body interface{}) (int, response.Body) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestSignup_Validation(t *testing.T) {
	r, _ := setupRouter(t, newMemUsers(), nil)

	tests := []struct {
		name string
		req  SignupRequest
		want string
	}{
		{"missing name", SignupRequest{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}, MsgNameRequired},
		{"bad email", SignupRequest{Email: "a@", Password: "secret1", ConfirmPassword: "secret1", Name: "A"}, MsgInvalidEmail},
		{"mismatch", SignupRequest{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret2", Name: "A"}, MsgPasswordMismatch},
		{"short", SignupRequest{Email: "a@b.co", Password: "123", ConfirmPassword: "123", Name: "A"}, MsgPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, r, "/auth/signup", tt.req)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.want, body.Error)
		})
	}
}

func TestSignupThenLogin(t *testing.T) {
	users := newMemUsers()
	r, jwt := setupRouter(t, users, nil)

	code, body := doJSON(t, r, "/auth/signup", SignupRequest{
		Email: "Faculty@College.edu", Password: "secret1", ConfirmPassword: "secret1", Name: "Jane Doe",
	})
	require.Equal(t, http.StatusCreated, code, body.Error)

	code, body = doJSON(t, r, "/auth/signup", SignupRequest{
		Email: "faculty@college.edu", Password: "secret1", ConfirmPassword: "secret1", Name: "Jane Doe",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, MsgEmailInUse, body.Error)

	code, body = doJSON(t, r, "/auth/login", LoginRequest{Email: "nobody@college.edu", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, MsgNoAccount, body.Error)

	code, body = doJSON(t, r, "/auth/login", LoginRequest{Email: "faculty@college.edu", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, MsgWrongPassword, body.Error)

	code, body = doJSON(t, r, "/auth/login", LoginRequest{Email: "faculty@college.edu", Password: "secret1"})
	require.Equal(t, http.StatusOK, code)
	data := body.Data.(map[string]interface{})
	claims, err := jwt.Validate(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "faculty@college.edu", claims.Email)
}

func TestLogin_Throttled(t *testing.T) {
	users := newMemUsers()
	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	_, err = users.Create(context.Background(), "a@b.co", hash, "A")
	require.NoError(t, err)

	limiter := &countingLimiter{max: 5}
	r, _ := setupRouter(t, users, limiter)

	for i := 0; i < 5; i++ {
		code, _ := doJSON(t, r, "/auth/login", LoginRequest{Email: "a@b.co", Password: "nope-nope"})
		require.Equal(t, http.StatusUnauthorized, code)
	}
	code, body := doJSON(t, r, "/auth/login", LoginRequest{Email: "a@b.co", Password: "secret1"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, MsgTooManyAttempts, body.Error)
}

func TestJWT_RejectsTampered(t *testing.T) {
	svc := NewJWTService("s1", 1)
	token, err := svc.Generate(uuid.New(), "a@b.co")
	require.NoError(t, err)

	_, err = NewJWTService("s2", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTService("s1", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Generate(uuid.New(), "a@b.co")
	require.NoError(t, err)
	_, err = svc.Validate(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBootstrap_EnsureAdmin(t *testing.T) {
	users := newMemUsers()
	profiles := &memProfiles{}
	b := NewBootstrapper(users, profiles, nil)

	u, err := b.EnsureAdmin(context.Background(), "admin@ultron.test", "admin123")
	require.NoError(t, err)
	p := profiles.profiles[u.ID]
	require.NotNil(t, p)
	assert.Equal(t, models.RoleAdmin, p.Role)
	assert.Equal(t, "ADMIN001", p.StaffCode)
	assert.Equal(t, []string{"System Administration", "Faculty Development"}, p.AreasOfInterest)

	again, err := b.EnsureAdmin(context.Background(), "admin@ultron.test", "different1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.True(t, utils.CheckPassword("admin123", again.Password), "existing password is kept")
}
