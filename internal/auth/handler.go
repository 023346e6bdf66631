package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/pkg/response"
	"github.com/ultron-ftp/backend/pkg/utils"
	"github.com/ultron-ftp/backend/pkg/validator"
)

// Messages shown to the user for identity failures.
const (
	MsgNoAccount        = "No account found with this email address"
	MsgWrongPassword    = "Incorrect password"
	MsgInvalidEmail     = "Invalid email address"
	MsgTooManyAttempts  = "Too many failed attempts. Please try again later"
	MsgEmailInUse       = "An account with this email already exists"
	MsgPasswordMismatch = "Passwords do not match"
	MsgPasswordTooShort = "Password must be at least 6 characters"
	MsgNameRequired     = "Please enter your full name"
	MsgAuthFailed       = "Authentication failed. Please try again"
)

// UserStore is the user persistence used by the handler and bootstrapper.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, displayName string) (*models.User, error)
}

// ProfileReader loads a user's profile.
type ProfileReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Name            string `json:"name"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token   string            `json:"token"`
	User    models.UserPublic `json:"user"`
	Profile *models.Profile   `json:"profile,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users    UserStore
	profiles ProfileReader
	jwt      *JWTService
	limiter  Limiter
	logger   *zap.Logger
}

// NewHandler creates an auth handler. limiter may be nil to disable throttling.
func NewHandler(users UserStore, profiles ProfileReader, jwt *JWTService, limiter Limiter, logger *zap.Logger) *Handler {
	return &Handler{users: users, profiles: profiles, jwt: jwt, limiter: limiter, logger: logger}
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case strings.TrimSpace(req.Name) == "":
		response.BadRequest(c, MsgNameRequired)
		return
	case !validator.Email(req.Email):
		response.BadRequest(c, MsgInvalidEmail)
		return
	case req.Password != req.ConfirmPassword:
		response.BadRequest(c, MsgPasswordMismatch)
		return
	case len(req.Password) < utils.MinPasswordLength:
		response.BadRequest(c, MsgPasswordTooShort)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", zap.Error(err))
		response.Internal(c, MsgAuthFailed)
		return
	}
	user, err := h.users.Create(c.Request.Context(), req.Email, hash, req.Name)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, MsgEmailInUse)
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, MsgAuthFailed)
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, MsgAuthFailed)
		return
	}
	h.logger.Info("user signed up", zap.String("user_id", user.ID.String()))
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !validator.Email(req.Email) {
		response.BadRequest(c, MsgInvalidEmail)
		return
	}
	ctx := c.Request.Context()

	if h.limiter != nil {
		blocked, err := h.limiter.Blocked(ctx, req.Email)
		if err != nil {
			h.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if blocked {
			response.TooManyRequests(c, MsgTooManyAttempts)
			return
		}
	}

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.recordFailure(ctx, req.Email)
			response.Unauthorized(c, MsgNoAccount)
			return
		}
		h.logger.Error("lookup user failed", zap.Error(err))
		response.Internal(c, MsgAuthFailed)
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		h.recordFailure(ctx, req.Email)
		response.Unauthorized(c, MsgWrongPassword)
		return
	}
	if h.limiter != nil {
		if err := h.limiter.Reset(ctx, req.Email); err != nil {
			h.logger.Warn("login limiter reset failed", zap.Error(err))
		}
	}

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, MsgAuthFailed)
		return
	}
	out := TokenResponse{Token: token, User: user.ToPublic()}
	if h.profiles != nil {
		p, err := h.profiles.Get(ctx, user.ID)
		switch {
		case err == nil:
			out.Profile = p
		case !errors.Is(err, models.ErrNotFound):
			h.logger.Warn("load profile on login failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
	}
	response.OK(c, out)
}

func (h *Handler) recordFailure(ctx context.Context, email string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Fail(ctx, email); err != nil {
		h.logger.Warn("login limiter record failed", zap.Error(err))
	}
}
