package response

import (
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachment_FilenameSurvivesParsing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		filename string
	}{
		{"plain", "Jane_Doe_AI_Workshop_Certificate.pdf"},
		{"quote", `Shaquille_O"Neal_AI_Certificate.pdf`},
		{"non-ascii", "Zoë_Müller_Ünal_AI_Certificate.pdf"},
		{"quote and non-ascii", `Renée_"RJ"_Dubois_Certificate.pdf`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Attachment(c, tt.filename, "application/pdf", []byte("%PDF-1.3"))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
			disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
			require.NoError(t, err)
			assert.Equal(t, "attachment", disposition)
			assert.Equal(t, tt.filename, params["filename"])
			assert.Equal(t, "%PDF-1.3", w.Body.String())
		})
	}
}
