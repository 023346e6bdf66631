package profiles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/session"
	"github.com/ultron-ftp/backend/pkg/response"
	"github.com/ultron-ftp/backend/pkg/storage"
	"github.com/ultron-ftp/backend/pkg/validator"
)

// Store is the profile persistence used by the handler.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	SetPhotoURL(ctx context.Context, userID uuid.UUID, url string) error
}

// Interests accepts either a JSON list or a comma-separated string.
type Interests []string

// UnmarshalJSON implements json.Unmarshaler.
func (i *Interests) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*i = nil
		return nil
	}
	var raw []string
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.Split(s, ",")
	} else if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	*i = out
	return nil
}

// UpdateProfileRequest is the body for PUT /me/profile.
type UpdateProfileRequest struct {
	Name            string    `json:"name" validate:"notblank,max=120"`
	Department      string    `json:"department" validate:"notblank,max=120"`
	StaffCode       string    `json:"staff_code" validate:"notblank,max=40"`
	Phone           string    `json:"phone" validate:"notblank,max=30"`
	AreasOfInterest Interests `json:"areas_of_interest"`
}

// MeResponse is the body of GET /me.
type MeResponse struct {
	User       models.UserPublic `json:"user"`
	Profile    *models.Profile   `json:"profile"`
	HasProfile bool              `json:"has_profile"`
	IsAdmin    bool              `json:"is_admin"`
}

// Handler handles profile HTTP endpoints.
type Handler struct {
	repo   Store
	media  storage.MediaUploader
	logger *zap.Logger
}

// NewHandler creates a profile handler. media may be nil when S3 is not configured.
func NewHandler(repo Store, media storage.MediaUploader, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, media: media, logger: logger}
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	sess := session.From(c)
	response.OK(c, MeResponse{
		User:       sess.User.ToPublic(),
		Profile:    sess.Profile,
		HasProfile: sess.HasProfile(),
		IsAdmin:    sess.IsAdmin(),
	})
}

// Update handles PUT /me/profile. The role and photo are never changed here.
func (h *Handler) Update(c *gin.Context) {
	sess := session.From(c)
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := validator.Struct(req); err != nil {
		response.BadRequest(c, validator.Message(err))
		return
	}
	p := &models.Profile{
		UserID:          sess.UserID(),
		Name:            strings.TrimSpace(req.Name),
		Department:      strings.TrimSpace(req.Department),
		StaffCode:       strings.TrimSpace(req.StaffCode),
		Phone:           strings.TrimSpace(req.Phone),
		AreasOfInterest: []string(req.AreasOfInterest),
		Role:            sess.Role(),
	}
	if p.AreasOfInterest == nil {
		p.AreasOfInterest = []string{}
	}
	if err := h.repo.Upsert(c.Request.Context(), p); err != nil {
		h.logger.Error("save profile failed", zap.Error(err), zap.String("user_id", p.UserID.String()))
		response.Internal(c, "failed to save profile")
		return
	}
	sess.Profile = p
	response.OK(c, p)
}

// UploadPhoto handles POST /me/profile/photo (multipart field "photo").
func (h *Handler) UploadPhoto(c *gin.Context) {
	if h.media == nil {
		response.ServiceUnavailable(c, "file storage not configured")
		return
	}
	sess := session.From(c)
	if !sess.HasProfile() {
		response.BadRequest(c, "save your profile before uploading a photo")
		return
	}
	file, err := c.FormFile("photo")
	if err != nil {
		response.BadRequest(c, "missing file (form field: photo)")
		return
	}
	if !storage.IsImageContentType(file.Header.Get("Content-Type")) {
		response.BadRequest(c, "Please select an image file")
		return
	}
	body, err := storage.ReadUpload(file, storage.MaxPhotoFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			response.TooLarge(c, "Image size should be less than 5MB")
			return
		}
		h.logger.Error("read uploaded photo failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	img, contentType, err := storage.NormalizeImage(bytes.NewReader(body), file.Header.Get("Content-Type"), storage.ProfilePhotoMaxSide)
	if err != nil {
		response.BadRequest(c, "Please select an image file")
		return
	}

	ctx := c.Request.Context()
	name := strings.TrimSuffix(file.Filename, path.Ext(file.Filename)) + storage.ImageExtension(contentType)
	key := storage.ProfilePhotoKey(sess.UserID().String(), name, time.Now())
	url, err := h.media.UploadMedia(ctx, key, contentType, img)
	if err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("user_id", sess.UserID().String()), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}
	if err := h.repo.SetPhotoURL(ctx, sess.UserID(), url); err != nil {
		h.logger.Error("save photo url failed", zap.Error(err), zap.String("user_id", sess.UserID().String()))
		response.Internal(c, "failed to save photo")
		return
	}
	sess.Profile.PhotoURL = url
	response.OK(c, gin.H{"photo_url": url})
}
