package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/otp-auth/internal/http/handlers/common"
	"github.com/ignatzorin/otp-auth/internal/http/response"
	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
	"github.com/ignatzorin/otp-auth/internal/service"
	"github.com/ignatzorin/otp-auth/internal/validation"
)

// AuthHandler предоставляет HTTP слой для регистрации, входа и одноразовых кодов.
type AuthHandler struct {
	auth      *service.AuthService
	otpLength int
	exposeOTP bool
}

// NewAuthHandler создаёт хэндлер. exposeOTP включает код в ответ,
// используется только вне production.
func NewAuthHandler(auth *service.AuthService, otpLength int, exposeOTP bool) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		otpLength: otpLength,
		exposeOTP: exposeOTP,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type otpVerifyRequest struct {
	common.ContactRequest
	Code     string  `json:"code" binding:"required"`
	Password *string `json:"password"`
}

type resetVerifyRequest struct {
	common.ContactRequest
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// AuthResponse аккаунт (ключ user) и bearer токен.
type AuthResponse struct {
	Account *models.Account `json:"user"`
	Token   string          `json:"token"`
}

// OTPResponse ответ на запрос кода. OTP заполняется только вне production.
type OTPResponse struct {
	SentTo    string    `json:"sent_to"`
	ExpiresAt time.Time `json:"expires_at"`
	OTP       string    `json:"otp,omitempty"`
}

// Register обрабатывает POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	email, password, err := h.bindCredentials(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.auth.Register(c.Request.Context(), email, password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Created(c, AuthResponse{Account: result.Account, Token: result.Token})
}

// Login обрабатывает POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	email, password, err := h.bindCredentials(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), email, password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, AuthResponse{Account: result.Account, Token: result.Token})
}

// RequestSignupOTP обрабатывает POST /api/auth/signup/otp/request.
func (h *AuthHandler) RequestSignupOTP(c *gin.Context) {
	h.requestOTP(c, h.auth.RequestSignupOTP)
}

// VerifySignupOTP обрабатывает POST /api/auth/signup/otp/verify.
func (h *AuthHandler) VerifySignupOTP(c *gin.Context) {
	var req otpVerifyRequest
	contact, err := h.bindVerify(c, &req, &req.ContactRequest, &req.Code)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if req.Password != nil {
		if err := common.ValidatePassword(*req.Password); err != nil {
			_ = c.Error(err)
			return
		}
	}

	result, err := h.auth.VerifySignupOTP(c.Request.Context(), service.VerifySignupInput{
		Contact:  contact,
		Code:     req.Code,
		Password: req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Created(c, AuthResponse{Account: result.Account, Token: result.Token})
}

// RequestLoginOTP обрабатывает POST /api/auth/login/otp/request.
func (h *AuthHandler) RequestLoginOTP(c *gin.Context) {
	h.requestOTP(c, h.auth.RequestLoginOTP)
}

// VerifyLoginOTP обрабатывает POST /api/auth/login/otp/verify.
func (h *AuthHandler) VerifyLoginOTP(c *gin.Context) {
	var req otpVerifyRequest
	contact, err := h.bindVerify(c, &req, &req.ContactRequest, &req.Code)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.auth.VerifyLoginOTP(c.Request.Context(), contact, req.Code)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, AuthResponse{Account: result.Account, Token: result.Token})
}

// RequestPasswordReset обрабатывает POST /api/auth/forgot-password/request.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	h.requestOTP(c, h.auth.RequestPasswordResetOTP)
}

// ResetPassword обрабатывает POST /api/auth/forgot-password/verify.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetVerifyRequest
	contact, err := h.bindVerify(c, &req, &req.ContactRequest, &req.Code)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := common.ValidatePassword(req.NewPassword); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.auth.ResetPasswordWithOTP(c.Request.Context(), service.ResetPasswordInput{
		Contact:     contact,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, AuthResponse{Account: result.Account, Token: result.Token})
}

// Me обрабатывает GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	accountID, err := common.CurrentAccountID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	account, err := h.auth.CurrentAccount(c.Request.Context(), accountID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Success(c, account)
}

type otpRequester func(ctx context.Context, contact models.Contact) (*service.OTPResult, error)

func (h *AuthHandler) requestOTP(c *gin.Context, request otpRequester) {
	var req common.ContactRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	contact, err := req.Contact()
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := request(c.Request.Context(), contact)
	if err != nil {
		_ = c.Error(err)
		return
	}

	data := OTPResponse{SentTo: contact.Value, ExpiresAt: result.ExpiresAt}
	if h.exposeOTP {
		data.OTP = result.Code
	}
	c.JSON(http.StatusCreated, response.Response{Success: true, Data: data})
}

func (h *AuthHandler) bindCredentials(c *gin.Context) (string, string, error) {
	var req credentialsRequest
	if err := common.BindJSON(c, &req); err != nil {
		return "", "", err
	}

	email := validation.NormalizeEmail(req.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return "", "", apperror.Validation(err.Error())
	}
	if err := common.ValidatePassword(req.Password); err != nil {
		return "", "", err
	}
	return email, req.Password, nil
}

func (h *AuthHandler) bindVerify(c *gin.Context, req interface{}, contactReq *common.ContactRequest, code *string) (models.Contact, error) {
	if err := common.BindJSON(c, req); err != nil {
		return models.Contact{}, err
	}

	contact, err := contactReq.Contact()
	if err != nil {
		return models.Contact{}, err
	}
	if err := validation.ValidateCode(*code, h.otpLength); err != nil {
		return models.Contact{}, apperror.Validation(err.Error())
	}
	return contact, nil
}
