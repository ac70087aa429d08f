package auth

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/response"
	"github.com/kariyerai/backend/pkg/utils"
)

// AuditLog receives admin login entries.
type AuditLog interface {
	Append(ctx context.Context, e *models.AdminLog) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
	FullName        string `json:"fullName" binding:"required"`
	Phone           string `json:"phone"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users  UserStore
	jwt    *JWTService
	audit  AuditLog
	logger *zap.Logger
}

// NewHandler creates an auth handler. audit may be nil.
func NewHandler(users UserStore, jwt *JWTService, audit AuditLog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, audit: audit, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Password != req.PasswordConfirm {
		response.BadRequest(c, "passwords do not match")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.users.Create(c.Request.Context(), CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         models.RoleUser,
	})
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(c, "email already registered")
		return
	}
	if err != nil {
		h.logger.Error("register failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	pub := user.ToPublic()
	pub.Plan = models.PlanFree
	response.Created(c, TokenResponse{Token: token, User: pub})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.Error("login lookup failed", zap.Error(err))
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	if user.Role == models.RoleAdmin && h.audit != nil {
		details, _ := json.Marshal(map[string]string{"email": user.Email})
		id := user.ID.String()
		entry := &models.AdminLog{
			AdminID:    user.ID,
			Action:     models.ActionLogin,
			TargetType: models.TargetUser,
			TargetID:   &id,
			Details:    details,
			IPAddress:  c.ClientIP(),
		}
		if err := h.audit.Append(c.Request.Context(), entry); err != nil {
			h.logger.Error("admin login audit failed", zap.String("admin_id", id), zap.Error(err))
		}
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}
