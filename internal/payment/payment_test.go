package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
)

func feeProgram(fee float64) *models.Program {
	return &models.Program{
		ID:                 uuid.New(),
		ProgramName:        "AI & ML Bootcamp",
		HasRegistrationFee: true,
		RegistrationFee:    &fee,
		UPIID:              "ultron@okaxis",
	}
}

func TestURI(t *testing.T) {
	b := NewBuilder("ULTRON FTP", "", 0)
	uri, err := b.URI(feeProgram(500))
	require.NoError(t, err)
	assert.Equal(t, "upi://pay?pa=ultron@okaxis&pn=ULTRON%20FTP&am=500&cu=INR&tn=Registration%20for%20AI%20%26%20ML%20Bootcamp", uri)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "Registration for AI & ML Bootcamp", u.Query().Get("tn"))
	assert.Equal(t, "ultron@okaxis", u.Query().Get("pa"))

	for _, pair := range strings.Split(strings.TrimPrefix(uri, "upi://pay?"), "&") {
		kv := strings.SplitN(pair, "=", 2)
		require.Len(t, kv, 2, pair)
		decoded, err := url.PathUnescape(kv[1])
		require.NoError(t, err)
		if kv[0] == "pn" {
			assert.Equal(t, "ULTRON FTP", decoded)
		}
	}

	uri, err = b.URI(feeProgram(249.5))
	require.NoError(t, err)
	assert.Contains(t, uri, "am=249.5&")
}

func TestURI_EscapesQueryDelimiters(t *testing.T) {
	p := feeProgram(100)
	p.ProgramName = "C++ = 50% off #1"
	uri, err := NewBuilder("ULTRON FTP", "INR", 0).URI(p)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(uri, "&tn=Registration%20for%20C%2B%2B%20%3D%2050%25%20off%20%231"), uri)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "Registration for C++ = 50% off #1", u.Query().Get("tn"))
}

func TestURI_NoFee(t *testing.T) {
	b := NewBuilder("ULTRON FTP", "INR", 128)
	_, err := b.URI(&models.Program{ProgramName: "Free"})
	assert.ErrorIs(t, err, ErrNoFee)
	_, err = b.Build(&models.Program{ProgramName: "Free"})
	assert.ErrorIs(t, err, ErrNoFee)
}

func TestBuild_QRIsPNG(t *testing.T) {
	ref, err := NewBuilder("ULTRON FTP", "INR", 128).Build(feeProgram(100))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(ref.QRPNG)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 100.0, ref.Amount)
}

type programMap map[uuid.UUID]*models.Program

func (m programMap) GetByID(_ context.Context, id uuid.UUID) (*models.Program, error) {
	p, ok := m[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	paid := feeProgram(300)
	paid.Status = models.ProgramPublished
	free := &models.Program{ID: uuid.New(), ProgramName: "Free", Status: models.ProgramPublished}
	draft := feeProgram(100)
	draft.Status = models.ProgramDraft

	h := NewHandler(programMap{paid.ID: paid, free.ID: free, draft.ID: draft}, NewBuilder("ULTRON FTP", "INR", 128), zap.NewNop())
	r := gin.New()
	r.GET("/programs/:id/payment", h.Reference)
	r.GET("/programs/:id/payment/qr.png", h.QRCode)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/programs/" + paid.ID.String() + "/payment")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data Reference `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Data.URI, "upi://pay?pa=ultron%40okaxis"))
	assert.NotEmpty(t, body.Data.QRPNG)

	w = get("/programs/" + paid.ID.String() + "/payment/qr.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, get("/programs/"+free.ID.String()+"/payment").Code)
	assert.Equal(t, http.StatusNotFound, get("/programs/"+free.ID.String()+"/payment/qr.png").Code)
	assert.Equal(t, http.StatusNotFound, get("/programs/"+draft.ID.String()+"/payment").Code)
	assert.Equal(t, http.StatusBadRequest, get("/programs/nope/payment").Code)
}
