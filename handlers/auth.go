package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"timekeeper/config"
	"timekeeper/logger"
	"timekeeper/middleware"
	"timekeeper/models"
	"timekeeper/services"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthHandler struct {
	config *config.Config
	db     *gorm.DB
	now    func() time.Time
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		now:    time.Now,
	}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token              string           `json:"token"`
	ExpiresAt          time.Time        `json:"expires_at"`
	MustChangePassword bool             `json:"must_change_password"`
	Employee           *models.Employee `json:"employee"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var employee models.Employee
	err := h.db.WithContext(r.Context()).Where("username = ?", strings.TrimSpace(req.Username)).First(&employee).Error
	if err == nil && !employee.IsActive {
		err = errors.New("inactive")
	}
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		logger.FromContext(r.Context()).Warn().Str("username", req.Username).Msg("failed login")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	h.issueToken(w, r, &employee, http.StatusOK)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearTokenCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.GetUserFromContext(r.Context()))
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req ChangePasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeError(w, r, badRequest("current password is incorrect"))
		return
	}
	if req.NewPassword == req.CurrentPassword {
		writeError(w, r, badRequest("new password must differ from the current one"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.db.WithContext(r.Context()).Model(user).Updates(map[string]interface{}{
		"password_hash":        string(hashedPassword),
		"must_change_password": false,
	}).Error; err != nil {
		writeError(w, r, err)
		return
	}
	user.PasswordHash = string(hashedPassword)
	user.MustChangePassword = false

	h.issueToken(w, r, user, http.StatusOK)
}

type RegisterRequest struct {
	Code            string `json:"code" validate:"required"`
	Username        string `json:"username" validate:"required,min=3,max=100,alphanum"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Register creates an account from a one-time invite and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var employee models.Employee
	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var invite models.Invite
		if err := tx.Where("code = ?", req.Code).First(&invite).Error; err != nil {
			return badRequest("invalid invite code")
		}
		if !invite.IsValid(h.now()) {
			return badRequest("invite has expired or was already used")
		}

		var taken int64
		if err := tx.Unscoped().Model(&models.Employee{}).Where("username = ?", req.Username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return badRequest("username already exists")
		}

		res := tx.Model(&models.Invite{}).Where("id = ? AND used = ?", invite.ID, false).Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return badRequest("invite was already used")
		}

		employee = models.Employee{
			Username:     req.Username,
			FirstName:    invite.FirstName,
			LastName:     invite.LastName,
			Email:        req.Email,
			PasswordHash: string(hashedPassword),
			Role:         invite.Role,
			ClientID:     invite.ClientID,
			IsActive:     true,
			IsExempt:     invite.IsExempt,
			State:        invite.State,
		}
		if err := tx.Create(&employee).Error; err != nil {
			return err
		}
		// the registrant chose this password, so no forced change
		employee.MustChangePassword = false
		return tx.Model(&employee).Update("must_change_password", false).Error
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info().Uint("employee_id", employee.ID).Str("role", string(employee.Role)).Msg("employee registered")
	h.issueToken(w, r, &employee, http.StatusCreated)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request, e *models.Employee, status int) {
	token, err := middleware.GenerateToken(e, h.config.JWTExpiration)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.SetTokenCookie(w, token, h.config.JWTExpiration)
	writeJSON(w, status, LoginResponse{
		Token:              token,
		ExpiresAt:          h.now().Add(h.config.JWTExpiration).UTC(),
		MustChangePassword: e.MustChangePassword,
		Employee:           e,
	})
}

type CreateInviteRequest struct {
	FirstName string      `json:"first_name" validate:"required,max=100"`
	LastName  string      `json:"last_name" validate:"max=100"`
	Role      models.Role `json:"role" validate:"required,oneof=ADMIN MANAGER EMPLOYEE"`
	ClientID  *uint       `json:"client_id"`
	IsExempt  bool        `json:"is_exempt"`
	State     string      `json:"state" validate:"omitempty,len=2,alpha"`
}

func (h *AuthHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if !user.CanCreateInvites() {
		writeError(w, r, services.ErrForbidden)
		return
	}

	query := h.db.WithContext(r.Context()).Preload("Client").Order("created_at desc")
	if !queryBool(r, "all") {
		query = query.Where("used = ? AND expires_at > ?", false, h.now())
	}
	var invites []models.Invite
	if err := query.Find(&invites).Error; err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *AuthHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if !user.CanCreateInvites() {
		writeError(w, r, services.ErrForbidden)
		return
	}

	var req CreateInviteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ClientID != nil {
		var client models.Client
		if err := h.db.WithContext(r.Context()).First(&client, *req.ClientID).Error; err != nil {
			writeError(w, r, badRequest("unknown client %d", *req.ClientID))
			return
		}
	}

	code, err := models.GenerateInviteCode()
	if err != nil {
		writeError(w, r, fmt.Errorf("generate invite code: %w", err))
		return
	}

	invite := models.Invite{
		Code:      code,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		CreatedBy: user.ID,
		ExpiresAt: h.now().Add(h.config.InviteExpiration),
		ClientID:  req.ClientID,
		IsExempt:  req.IsExempt,
		State:     strings.ToUpper(req.State),
	}
	if err := h.db.WithContext(r.Context()).Create(&invite).Error; err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}
