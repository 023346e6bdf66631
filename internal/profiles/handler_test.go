package profiles

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/session"
	"github.com/ultron-ftp/backend/pkg/response"
)

type memStore struct {
	profiles map[uuid.UUID]*models.Profile
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (m *memStore) Upsert(_ context.Context, p *models.Profile) error {
	if m.profiles == nil {
		m.profiles = make(map[uuid.UUID]*models.Profile)
	}
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *memStore) SetPhotoURL(_ context.Context, id uuid.UUID, url string) error {
	p, ok := m.profiles[id]
	if !ok {
		return models.ErrNotFound
	}
	p.PhotoURL = url
	return nil
}

type memMedia struct {
	keys []string
}

func (m *memMedia) UploadMedia(_ context.Context, key, _ string, _ []byte) (string, error) {
	m.keys = append(m.keys, key)
	return "https://media.test/" + key, nil
}

func router(h *Handler, sess *session.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { session.Set(c, sess); c.Next() })
	r.GET("/me", h.Me)
	r.PUT("/me/profile", h.Update)
	r.POST("/me/profile/photo", h.UploadPhoto)
	return r
}

func TestUpdate_ParsesInterestsAndKeepsRole(t *testing.T) {
	store := &memStore{}
	user := &models.User{ID: uuid.New()}
	sess := session.New(user, &models.Profile{UserID: user.ID, Role: models.RoleAdmin})
	r := router(NewHandler(store, nil, zap.NewNop()), sess)

	body := `{"name":" Jane Doe ","department":"CSE","staff_code":"S1","phone":"999","areas_of_interest":"AI, , Cloud ,ML"}`
	req := httptest.NewRequest(http.MethodPut, "/me/profile", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	saved := store.profiles[user.ID]
	assert.Equal(t, "Jane Doe", saved.Name)
	assert.Equal(t, []string{"AI", "Cloud", "ML"}, saved.AreasOfInterest)
	assert.Equal(t, models.RoleAdmin, saved.Role)
	assert.True(t, sess.Profile.Complete())
}

func TestUpdate_RequiresFields(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	r := router(NewHandler(&memStore{}, nil, zap.NewNop()), session.New(user, nil))

	req := httptest.NewRequest(http.MethodPut, "/me/profile", strings.NewReader(`{"name":"Jane","department":"CSE","phone":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var out response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "staff_code is required", out.Error)
}

func TestInterests_AcceptsList(t *testing.T) {
	var i Interests
	require.NoError(t, json.Unmarshal([]byte(`[" AI ","", "ML"]`), &i))
	assert.Equal(t, Interests{"AI", "ML"}, i)
}

func photoRequest(t *testing.T, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="photo"; filename="me photo.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/me/profile/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadPhoto(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	store := &memStore{}
	profile := &models.Profile{UserID: user.ID, Name: "Jane", Department: "CSE", StaffCode: "S1", Phone: "1"}
	require.NoError(t, store.Upsert(context.Background(), profile))
	media := &memMedia{}
	r := router(NewHandler(store, media, zap.NewNop()), session.New(user, profile))

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 30))))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, photoRequest(t, "application/pdf", img.Bytes()))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, photoRequest(t, "image/png", img.Bytes()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, media.keys, 1)
	assert.True(t, strings.HasPrefix(media.keys[0], "profiles/"+user.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(media.keys[0], "_me_photo.png"))
	assert.Equal(t, "https://media.test/"+media.keys[0], store.profiles[user.ID].PhotoURL)
}
