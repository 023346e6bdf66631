package programs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

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
	mu        sync.Mutex
	programs  map[uuid.UUID]*models.Program
	listCalls int
}

func newMemStore() *memStore { return &memStore{programs: make(map[uuid.UUID]*models.Program)} }

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, p *models.Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.programs[p.ID] = &cp
	return nil
}

func (m *memStore) ListPublished(_ context.Context) ([]models.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []models.Program
	for _, p := range m.programs {
		if p.Status == models.ProgramPublished {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) update(id uuid.UUID, fn func(p *models.Program)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(p)
	return nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uuid.UUID, s models.ProgramStatus) error {
	return m.update(id, func(p *models.Program) { p.Status = s })
}

func (m *memStore) SetBrochureURL(_ context.Context, id uuid.UUID, url string) error {
	return m.update(id, func(p *models.Program) { p.BrochureURL = url })
}

func (m *memStore) AppendGalleryPhotos(_ context.Context, id uuid.UUID, urls []string) error {
	return m.update(id, func(p *models.Program) { p.GalleryPhotos = append(p.GalleryPhotos, urls...) })
}

func (m *memStore) SetReportURL(_ context.Context, id uuid.UUID, url string) error {
	return m.update(id, func(p *models.Program) { p.ReportURL = url })
}

func validRequest() CreateProgramRequest {
	return CreateProgramRequest{
		ProgramName:          "AI Workshop",
		SpeakerName:          "Dr. Rao",
		SpeakerDesignation:   "Professor",
		StartDate:            "2025-03-01",
		EndDate:              "2025-03-03",
		Venue:                "Hall A",
		ConductingDepartment: "CSE",
		MaxParticipants:      40,
	}
}

func TestBuildProgram(t *testing.T) {
	userID := uuid.New()
	p, err := BuildProgram(validRequest(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgramPublished, p.Status)
	assert.Equal(t, 3, p.Duration, "duration derived from inclusive dates")
	assert.Equal(t, userID, p.CreatedBy)
	assert.Nil(t, p.RegistrationFee)

	req := validRequest()
	req.EndDate = "2025-02-01"
	_, err = BuildProgram(req, userID)
	assert.EqualError(t, err, "end_date must not be before start_date")

	req = validRequest()
	req.HasRegistrationFee = true
	_, err = BuildProgram(req, userID)
	assert.Error(t, err)

	fee := 250.0
	req.RegistrationFee = &fee
	req.UPIID = " ftp@upi "
	p, err = BuildProgram(req, userID)
	require.NoError(t, err)
	assert.Equal(t, "ftp@upi", p.UPIID)
	assert.Equal(t, 250.0, *p.RegistrationFee)

	req = validRequest()
	req.SpeakerName = " "
	_, err = BuildProgram(req, userID)
	assert.EqualError(t, err, "speaker_name is required")
}

func TestFilter(t *testing.T) {
	list := []models.Program{
		{ProgramName: "Deep Learning", SpeakerName: "Rao", ConductingDepartment: "CSE"},
		{ProgramName: "Cloud Basics", SpeakerName: "Iyer", ConductingDepartment: "IT", Description: "AWS and learning paths"},
		{ProgramName: "Circuits", SpeakerName: "Khan", ConductingDepartment: "ECE"},
	}
	assert.Len(t, Filter(list, "", ""), 3)
	assert.Len(t, Filter(list, "LEARNING", ""), 2)
	assert.Len(t, Filter(list, "learning", "IT"), 1)
	assert.Len(t, Filter(list, "khan", ""), 1)
	assert.Empty(t, Filter(list, "", "MECH"))
}

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, "%workshop%", containsPattern("workshop"))
	assert.Equal(t, `%100\% AI%`, containsPattern("100% AI"))
	assert.Equal(t, `%ml\_ops%`, containsPattern("ml_ops"))
	assert.Equal(t, `%C:\\dept%`, containsPattern(`C:\dept`))
	assert.Equal(t, "%%", containsPattern(""))
}

func TestCatalog_CachesUntilInvalidated(t *testing.T) {
	store := newMemStore()
	store.programs[uuid.New()] = &models.Program{ProgramName: "A", ConductingDepartment: "CSE", Status: models.ProgramPublished}
	store.programs[uuid.New()] = &models.Program{ProgramName: "B", ConductingDepartment: "IT", Status: models.ProgramPublished}
	store.programs[uuid.New()] = &models.Program{ProgramName: "C", ConductingDepartment: "ECE", Status: models.ProgramDraft}
	cat := NewCatalog(store, time.Minute, nil)

	list, err := cat.Published(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
	_, _ = cat.Published(context.Background())
	assert.Equal(t, 1, store.listCalls)

	depts, err := cat.Departments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE", "IT"}, depts)

	cat.Invalidate()
	_, _ = cat.Published(context.Background())
	assert.Equal(t, 2, store.listCalls)
}

func newRouter(store *memStore, sess *session.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, NewCatalog(store, time.Minute, nil), nil, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) { session.Set(c, sess); c.Next() })
	r.GET("/programs", h.List)
	r.POST("/programs", h.Create)
	r.GET("/programs/:id", h.Get)
	r.PATCH("/programs/:id/status", RequireManager(store, zap.NewNop()), h.UpdateStatus)
	return r
}

func send(r http.Handler, method, path string, body interface{}) (int, response.Body) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out response.Body
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestCreateListAndManage(t *testing.T) {
	store := newMemStore()
	creator := &models.User{ID: uuid.New()}
	other := &models.User{ID: uuid.New()}

	creatorRouter := newRouter(store, session.New(creator, nil))
	code, body := send(creatorRouter, http.MethodPost, "/programs", validRequest())
	require.Equal(t, http.StatusCreated, code, body.Error)
	id := body.Data.(map[string]interface{})["id"].(string)

	code, body = send(creatorRouter, http.MethodGet, "/programs?q=workshop", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body.Data.([]interface{}), 1)

	otherRouter := newRouter(store, session.New(other, &models.Profile{Role: models.RoleUser}))
	code, _ = send(otherRouter, http.MethodPatch, "/programs/"+id+"/status", UpdateStatusRequest{Status: models.ProgramCancelled})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = send(creatorRouter, http.MethodPatch, "/programs/"+id+"/status", UpdateStatusRequest{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = send(creatorRouter, http.MethodPatch, "/programs/"+id+"/status", UpdateStatusRequest{Status: models.ProgramCancelled})
	require.Equal(t, http.StatusOK, code)

	code, _ = send(otherRouter, http.MethodGet, "/programs/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code, "cancelled programs are hidden from non-managers")
	code, _ = send(creatorRouter, http.MethodGet, "/programs/"+id, nil)
	assert.Equal(t, http.StatusOK, code)

	adminRouter := newRouter(store, session.New(other, &models.Profile{Role: models.RoleAdmin}))
	code, _ = send(adminRouter, http.MethodPatch, "/programs/"+id+"/status", UpdateStatusRequest{Status: models.ProgramPublished})
	assert.Equal(t, http.StatusOK, code)

	code, _ = send(creatorRouter, http.MethodPatch, "/programs/not-a-uuid/status", UpdateStatusRequest{Status: models.ProgramPublished})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = send(creatorRouter, http.MethodPatch, "/programs/"+uuid.NewString()+"/status", UpdateStatusRequest{Status: models.ProgramPublished})
	assert.Equal(t, http.StatusNotFound, code)
}
